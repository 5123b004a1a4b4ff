// Package export writes a merged series to the caller-provided output
// path, picking the format from the file extension.
package export

import (
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/Edwardo1983/PROGNOZA/internal/series"
)

// Write serializes s to path: .csv/.txt as CSV, .parquet as Parquet, any
// other extension as a gob blob.
func Write(s series.Series, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return writeCSV(s, path)
	case ".parquet":
		return writeParquet(s, path)
	default:
		return writeGob(s, path)
	}
}

func writeCSV(s series.Series, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"time"}, series.ColumnNames[:]...)
	header = append(header, "source")
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range s.Rows {
		record := make([]string, 0, len(header))
		record = append(record, row.Time.UTC().Format(time.RFC3339))
		for _, v := range row.Values {
			if series.IsMissing(v) {
				record = append(record, "")
				continue
			}
			record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
		}
		record = append(record, row.Source)
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// parquetRow mirrors the canonical schema for columnar output. Missing
// values stay NaN, which Parquet doubles represent natively.
type parquetRow struct {
	Time      int64   `parquet:"name=time,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
	TempC     float64 `parquet:"name=temp_C,type=DOUBLE"`
	WindMS    float64 `parquet:"name=wind_ms,type=DOUBLE"`
	WindDeg   float64 `parquet:"name=wind_deg,type=DOUBLE"`
	CloudsPct float64 `parquet:"name=clouds_pct,type=DOUBLE"`
	Humidity  float64 `parquet:"name=humidity,type=DOUBLE"`
	UVI       float64 `parquet:"name=uvi,type=DOUBLE"`
	GHIWm2    float64 `parquet:"name=ghi_Wm2,type=DOUBLE"`
	Source    string  `parquet:"name=source,type=BYTE_ARRAY,convertedtype=UTF8"`
}

func writeParquet(s series.Series, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	pw, err := writer.NewParquetWriterFromWriter(f, new(parquetRow), 1)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range s.Rows {
		record := parquetRow{
			Time:      row.Time.UTC().UnixMilli(),
			TempC:     row.Values[series.TempC],
			WindMS:    row.Values[series.WindMS],
			WindDeg:   row.Values[series.WindDeg],
			CloudsPct: row.Values[series.CloudsPct],
			Humidity:  row.Values[series.Humidity],
			UVI:       row.Values[series.UVIndex],
			GHIWm2:    row.Values[series.GHIWm2],
			Source:    row.Source,
		}
		if err := pw.Write(record); err != nil {
			return fmt.Errorf("write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet: %w", err)
	}
	return nil
}

func writeGob(s series.Series, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(s); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
