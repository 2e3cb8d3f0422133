// Package dataprocessing turns insole pressure exports into ProcessedRecordings.
//
// # Architecture
//
// The package is organized into four parts:
//
// 1. Parser: reads xlsx or csv exports into a Table (metadata, header, rows)
// 2. Processor: aggregates each row into regions and builds the recording
// 3. Normalizer: derives outlier-capped display maxima
// 4. Filters: copy-on-write transformations (trim, noise floor, force merge)
//
// # Usage
//
//	parser := dataprocessing.NewParser(dataprocessing.DefaultMetadataRows, logger)
//	table, err := parser.ParseFile(ctx, "trial-03.xlsx")
//	if err != nil {
//	    return err
//	}
//	rec, err := dataprocessing.NewProcessor(aggregator, logger).Process(ctx, table, "trial-03.xlsx")
//
// # Data Flow
//
//	Export file → Parser → Table → Processor → ProcessedRecording → Filters
//
// # Error Handling
//
// A header without a time column aborts ingestion with ErrMissingTimeColumn
// and no recording is produced. Rows without a numeric time are skipped and
// counted in SkippedRows. Non-numeric sensor cells are never an error; they
// are excluded from the region statistics.
package dataprocessing
