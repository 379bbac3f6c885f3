// Package harness provides conformance testing for load plan construction.
//
// The harness compiles a directory of CUE entity mappings, builds the load
// plan for a root descriptor with the real builder, and checks the result
// against executable assertions and a golden snapshot.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: order_lineitems
//	description: "Order loads its line items inline and its customer separately"
//	mappings: ../mappings/shop
//	root: Order
//	overrides:
//	  customer: join
//	  "[Order.lineItems]": batch:25
//	max_join_depth: 0
//	uids:
//	  "": order
//	assertions:
//	  - type: space_count
//	    count: 5
//	  - type: join
//	    from: Order
//	    to: Order.lineItems
//	    role: lineItems
//	    fetch: join
//	  - type: fetch
//	    path: customer
//	    fetch: select
//	    reused: false
//
// The mappings directory is resolved relative to the scenario file.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - space_count: the plan has exactly count query spaces
//   - join: a join edge exists between spaces of from and to (role and fetch optional)
//   - fetch: the fetch at path has the given strategy and/or reuse flag
//   - path: the descriptor loaded at path, or absent when nothing is
//   - alias: the SQL alias of the space loaded at path
//   - error: the build fails (contains and/or kind); cannot be combined with the others
//
// # Deterministic Testing
//
// Every scenario records its plan in a fresh in-memory journal whose build
// ids come from testutil.SequenceIDGenerator ("<name>-0001") and whose
// timestamps come from testutil.DeterministicClock. Query space uids are
// generated per build from zero. Snapshots are therefore byte-identical
// across runs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/order_lineitems.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
