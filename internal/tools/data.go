package tools

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ColumnStats summarizes one column. Numeric columns carry Min/Max/Mean/Sum;
// others carry Unique and Top.
type ColumnStats struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Count   int      `json:"count"`
	Missing int      `json:"missing"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Mean    *float64 `json:"mean,omitempty"`
	Sum     *float64 `json:"sum,omitempty"`
	Unique  int      `json:"unique,omitempty"`
	Top     string   `json:"top,omitempty"`
}

type DataSummary struct {
	Format  string        `json:"format"`
	Rows    int           `json:"rows"`
	Columns []ColumnStats `json:"columns"`
}

// Analyzer implements analyzeData over inline data or a file from the tool
// directory.
type Analyzer struct {
	files *Files
}

func NewAnalyzer(files *Files) *Analyzer {
	return &Analyzer{files: files}
}

func (a *Analyzer) Execute(_ context.Context, params map[string]any) (any, error) {
	data, err := stringParam(params, "data", false)
	if err != nil {
		return nil, err
	}
	format, err := stringParam(params, "format", false)
	if err != nil {
		return nil, err
	}
	if data == "" {
		name, err := stringParam(params, "path", false)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, fmt.Errorf("one of %q or %q is required", "data", "path")
		}
		if a.files == nil {
			return nil, fmt.Errorf("file access is disabled")
		}
		raw, err := a.files.read(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		data = string(raw)
		if format == "" && strings.HasSuffix(strings.ToLower(name), ".csv") {
			format = "csv"
		}
	}
	return AnalyzeData(data, format)
}

// AnalyzeData summarizes CSV (header row first) or a JSON array of objects.
// An empty format is detected from the data.
func AnalyzeData(data, format string) (*DataSummary, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		if t := strings.TrimSpace(data); strings.HasPrefix(t, "[") || strings.HasPrefix(t, "{") {
			format = "json"
		} else {
			format = "csv"
		}
	}
	switch format {
	case "csv":
		return analyzeCSV(data)
	case "json":
		return analyzeJSON(data)
	default:
		return nil, fmt.Errorf("unsupported data format %q", format)
	}
}

func analyzeCSV(data string) (*DataSummary, error) {
	r := csv.NewReader(strings.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse csv: no header row")
	}
	header := records[0]
	columns := make([][]string, len(header))
	for _, rec := range records[1:] {
		for i := range header {
			v := ""
			if i < len(rec) {
				v = rec[i]
			}
			columns[i] = append(columns[i], v)
		}
	}
	sum := &DataSummary{Format: "csv", Rows: len(records) - 1}
	for i, name := range header {
		sum.Columns = append(sum.Columns, columnStats(name, columns[i]))
	}
	return sum, nil
}

func analyzeJSON(data string) (*DataSummary, error) {
	var rows []map[string]any
	trimmed := strings.TrimSpace(data)
	if strings.HasPrefix(trimmed, "{") {
		var one map[string]any
		if err := json.Unmarshal([]byte(trimmed), &one); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		rows = []map[string]any{one}
	} else if err := json.Unmarshal([]byte(trimmed), &rows); err != nil {
		return nil, fmt.Errorf("parse json: expected an array of objects: %w", err)
	}

	var names []string
	seen := make(map[string]bool)
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}

	sum := &DataSummary{Format: "json", Rows: len(rows)}
	for _, name := range names {
		values := make([]string, len(rows))
		for i, row := range rows {
			values[i] = jsonCell(row[name])
		}
		sum.Columns = append(sum.Columns, columnStats(name, values))
	}
	return sum, nil
}

func jsonCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

func columnStats(name string, values []string) ColumnStats {
	cs := ColumnStats{Name: name}
	var nums []float64
	numeric := true
	counts := make(map[string]int)
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			cs.Missing++
			continue
		}
		cs.Count++
		counts[v]++
		if !numeric {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			numeric = false
			continue
		}
		nums = append(nums, f)
	}

	if numeric && len(nums) > 0 {
		cs.Type = "number"
		lo, hi, total := nums[0], nums[0], 0.0
		for _, f := range nums {
			lo = math.Min(lo, f)
			hi = math.Max(hi, f)
			total += f
		}
		mean := total / float64(len(nums))
		cs.Min, cs.Max, cs.Sum, cs.Mean = &lo, &hi, &total, &mean
		return cs
	}

	cs.Type = "string"
	cs.Unique = len(counts)
	best := 0
	for v, n := range counts {
		if n > best || (n == best && v < cs.Top) {
			best, cs.Top = n, v
		}
	}
	return cs
}
