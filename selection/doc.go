// Package selection picks the Holt-Winters configuration with the lowest
// validation error.
//
// The four trend/seasonal combinations are fitted on the training series
// concurrently and scored by mean squared error against the validation
// series:
//
//	result, err := selection.Select(ctx, split.Train, split.Valid, selection.Options{})
//	if errors.Is(err, selection.ErrNoViableModel) {
//		// every configuration failed; result.Attempts says why
//	}
//	fmt.Println(result.Best.Label) // "Trend: add, Seasonal: mul"
//
// Configurations that fail to fit are logged and skipped. The outcome is
// deterministic for a given input.
package selection
