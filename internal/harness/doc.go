// Package harness runs storefront scenarios end to end.
//
// A scenario is a YAML file listing shop operations performed by named
// accounts. Each scenario runs against a fresh in-memory store with a fixed
// clock, deterministic order numbers and an offline payment gateway, so the
// recorded trace is identical on every run and can be compared with a golden
// file.
//
// # Scenario Format
//
//	name: direct_order
//	description: "A buyer orders two mugs"
//	setup:
//	  - invoke: signup
//	    args: { name: Shop Owner, email: seller@example.com, password: secret123 }
//	flow:
//	  - invoke: add_to_cart
//	    as: buyer@example.com
//	    args: { product_id: 1 }
//	    expect:
//	      case: Success
//	      result: { quantity: 1 }
//	assertions:
//	  - type: trace_contains
//	    action: place_order
//	  - type: final_state
//	    table: orders
//	    where: { id: 1 }
//	    expect: { total_cents: 2598 }
//
// Setup steps must succeed. Flow steps are checked against their expect
// clause; a step without one must succeed.
//
// # Actions
//
//   - signup, login
//   - add_product, update_product, delete_product
//   - add_to_cart, remove_from_cart, view_cart
//   - place_order, start_checkout, pay, complete_checkout
//   - advance_clock
//
// Failed operations complete with the domain error code as their case
// (VALIDATION, EMPTY_CART, PAYMENT_PENDING, ...).
//
// # Assertion Types
//
//   - trace_contains: an action appears in the trace with matching args
//   - trace_order: actions appear in the given order
//   - trace_count: an action appears exactly N times
//   - email_sent: an email with the given subject went to the given address
//   - final_state: a row in a store table holds the expected values
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/direct_order.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
