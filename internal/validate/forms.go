package validate

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/storefront/internal/domain"
)

var (
	titlePattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-.,!?()]+$`)
	namePattern  = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	minPrice     = domain.Money(1)
)

// checker validates the form structs below. Errors are reported under the
// form field name, so messages can be keyed "field.tag".
var checker = newChecker()

func newChecker() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	for tag, fn := range map[string]validator.Func{
		"title":      matches(titlePattern),
		"personname": matches(namePattern),
		"price":      validPrice,
		"maxprice":   withinMaxPrice,
		"recordid":   validRecordID,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	return v
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func validPrice(fl validator.FieldLevel) bool {
	m, err := domain.ParseMoney(fl.Field().String())
	return err == nil && m >= minPrice
}

func withinMaxPrice(fl validator.FieldLevel) bool {
	m, err := domain.ParseMoney(fl.Field().String())
	return err == nil && m <= domain.MaxPrice
}

func validRecordID(fl validator.FieldLevel) bool {
	_, err := ID(fl.Field().String())
	return err == nil
}

// messages maps "field.tag" to the user-facing message for a failed rule.
type messages map[string]string

var passwordMessages = messages{
	"password.required":        "Password must be at least 6 characters long",
	"password.min":             "Password must be at least 6 characters long",
	"password.alphanum":        "Password must contain only letters and numbers",
	"confirmPassword.eqfield":  "Passwords do not match",
	"confirmPassword.required": "Passwords do not match",
}

// check runs the struct rules on form and converts the first failure into
// a VALIDATION error.
func check(form any, msgs ...messages) error {
	err := checker.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	key := fe.Field() + "." + fe.Tag()
	for _, m := range msgs {
		if msg, ok := m[key]; ok {
			return domain.Invalid(fe.Field(), msg)
		}
	}
	return domain.Invalid(fe.Field(), "Invalid "+fe.Field())
}

// ProductForm is the raw add/edit product form.
type ProductForm struct {
	Title       string `form:"title" validate:"required,min=3,max=100,title"`
	Price       string `form:"price" validate:"price,maxprice"`
	Description string `form:"description" validate:"required,min=10,max=500"`
}

var productMessages = messages{
	"title.required":       "Title must be between 3 and 100 characters",
	"title.min":            "Title must be between 3 and 100 characters",
	"title.max":            "Title must be between 3 and 100 characters",
	"title.title":          "Title contains invalid characters",
	"price.price":          "Price must be a positive number",
	"price.maxprice":       "Price must be at most " + domain.MaxPrice.String(),
	"description.required": "Description must be between 10 and 500 characters",
	"description.min":      "Description must be between 10 and 500 characters",
	"description.max":      "Description must be between 10 and 500 characters",
}

// Product validates a product form and returns the cleaned input.
func Product(f ProductForm) (domain.ProductInput, error) {
	out := ProductForm{
		Title:       Text(f.Title),
		Price:       trim(f.Price),
		Description: Text(f.Description),
	}
	if err := check(&out, productMessages); err != nil {
		return domain.ProductInput{}, err
	}
	price, err := domain.ParseMoney(out.Price)
	if err != nil {
		return domain.ProductInput{}, domain.Invalid("price", productMessages["price.price"])
	}
	return domain.ProductInput{Title: out.Title, Description: out.Description, Price: price}, nil
}

// SignupForm is the raw registration form.
type SignupForm struct {
	Name            string `form:"name" validate:"required,min=2,max=50,personname"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=6,alphanum"`
	ConfirmPassword string `form:"confirmPassword" validate:"eqfield=Password"`
}

var signupMessages = messages{
	"name.required":   "Name must be between 2 and 50 characters",
	"name.min":        "Name must be between 2 and 50 characters",
	"name.max":        "Name must be between 2 and 50 characters",
	"name.personname": "Name must contain only letters and spaces",
	"email.required":  "Invalid email address",
	"email.email":     "Invalid email address",
}

// Signup validates a registration form. The returned form has its name and
// email cleaned; passwords are returned as typed (trimmed).
func Signup(f SignupForm) (SignupForm, error) {
	out := SignupForm{
		Name:            Text(f.Name),
		Email:           Email(f.Email),
		Password:        trim(f.Password),
		ConfirmPassword: trim(f.ConfirmPassword),
	}
	if err := check(&out, signupMessages, passwordMessages); err != nil {
		return SignupForm{}, err
	}
	return out, nil
}

// LoginForm is the raw login form.
type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

var loginMessages = messages{
	"email.required":    "Please enter a valid email address",
	"email.email":       "Please enter a valid email address",
	"password.required": "Password is required",
}

// Login validates a login form and returns the cleaned email and password.
func Login(email, password string) (string, string, error) {
	out := LoginForm{Email: Email(email), Password: trim(password)}
	if err := check(&out, loginMessages); err != nil {
		return "", "", err
	}
	return out.Email, out.Password, nil
}

// ResetForm is the raw password-reset request form.
type ResetForm struct {
	Email string `form:"email" validate:"required,email"`
}

// ResetRequest validates the password-reset request form.
func ResetRequest(email string) (string, error) {
	out := ResetForm{Email: Email(email)}
	if err := check(&out, loginMessages); err != nil {
		return "", err
	}
	return out.Email, nil
}

// NewPasswordForm is the raw set-new-password form.
type NewPasswordForm struct {
	Password        string `form:"password" validate:"required,min=6,alphanum"`
	ConfirmPassword string `form:"confirmPassword" validate:"eqfield=Password"`
	UserID          string `form:"userId" validate:"recordid"`
	Token           string `form:"passwordToken" validate:"required"`
}

var newPasswordMessages = messages{
	"userId.recordid":        "Invalid user ID",
	"passwordToken.required": "Invalid password token",
}

// NewPassword validates the set-new-password form.
func NewPassword(f NewPasswordForm) (NewPasswordForm, error) {
	out := NewPasswordForm{
		UserID:          trim(f.UserID),
		Token:           trim(f.Token),
		Password:        trim(f.Password),
		ConfirmPassword: trim(f.ConfirmPassword),
	}
	if err := check(&out, passwordMessages, newPasswordMessages); err != nil {
		return NewPasswordForm{}, err
	}
	return out, nil
}
