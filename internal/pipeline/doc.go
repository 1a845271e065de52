// Package pipeline implements the calibration analysis core: best-subset
// filtering, standardization, PCA reduction, cluster-count diagnostics,
// k-means clustering and per-cluster analysis.
//
// Stages are plain functions that validate their own input and return a
// typed error (*InputError, *DegenerateInputError, *ComputationError) instead
// of partial output. Run chains them and stops at the first failure:
//
//	res, err := pipeline.Run(ctx, dataset, pipeline.OptionsFromConfig(cfg.Analysis))
//	// res.State holds the fitted standardization, projection and clustering
//	// res.Summaries holds one ClusterSummary per cluster
//
// Fitted models are read-only after fitting and safe to share between
// goroutines.
package pipeline
