// Package harness runs compiler scenarios described in YAML.
//
// # Scenario Format
//
//	name: sum_parallel
//	description: "accumulator loop becomes a parallel reduction"
//	program: programs/sum.cue
//	passes: [normalize-builtins, lower, parallelize]
//	config: configs/strict.toml
//	emit: ir
//	expect:
//	  contains: ["scf.parallel"]
//	  not_contains: ["scf.loop"]
//	  op_counts: {scf.reduce: 1}
//	  golden: true
//
// Paths are relative to the scenario file. passes defaults to the standard
// pipeline and config to the built-in defaults. emit selects the output text:
// "ir" (the printed module, default) or "llvm". A scenario expecting failure
// names the error code instead:
//
//	expect:
//	  error: UNBOUND_VARIABLE
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory run store with sequential run
// ids and a deterministic logical clock, so the logged run, the printed
// output and golden files are identical across executions.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/sum.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
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
