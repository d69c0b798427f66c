package seed

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

type Sale struct {
	Date       string  `parquet:"date"`
	Datetime   string  `parquet:"datetime"`
	CashType   string  `parquet:"cash_type"`
	Card       *string `parquet:"card,optional"`
	Money      float64 `parquet:"money"`
	CoffeeName string  `parquet:"coffee_name"`
}

type RowError struct {
	Row    int
	Reason string
}

type Report struct {
	Sales   []Sale
	Skipped []RowError
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"2006/01/02",
}

func Parse(r io.Reader) (Report, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Report{}, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Report{}, fmt.Errorf("read csv header: %w", err)
	}
	index := map[string]int{}
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var report Report
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Report{}, fmt.Errorf("read csv row %d: %w", row, err)
		}

		sale, reason := parseRecord(func(name string) string { return field(record, name) })
		if reason != "" {
			report.Skipped = append(report.Skipped, RowError{Row: row, Reason: reason})
			continue
		}
		report.Sales = append(report.Sales, sale)
	}
	return report, nil
}

func parseRecord(field func(string) string) (Sale, string) {
	date, err := ParseDate(field("date"))
	if err != nil {
		return Sale{}, err.Error()
	}
	datetime := field("datetime")
	if datetime == "" {
		return Sale{}, "missing datetime"
	}
	cashType := strings.ToLower(field("cash_type"))
	if cashType != "card" && cashType != "cash" {
		return Sale{}, fmt.Sprintf("invalid cash_type %q", cashType)
	}
	var card *string
	if value := field("card"); value != "" {
		card = &value
	}
	rawMoney := field("money")
	if rawMoney == "" {
		rawMoney = "0"
	}
	money, err := strconv.ParseFloat(strings.ReplaceAll(rawMoney, ",", "."), 64)
	if err != nil {
		return Sale{}, fmt.Sprintf("invalid money %q", rawMoney)
	}
	coffeeName := field("coffee_name")
	if coffeeName == "" {
		return Sale{}, "missing coffee_name"
	}
	return Sale{
		Date:       date,
		Datetime:   datetime,
		CashType:   cashType,
		Card:       card,
		Money:      money,
		CoffeeName: coffeeName,
	}, ""
}

func ParseDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unable to parse date %q", raw)
}

func detectDelimiter(data []byte) rune {
	header := data
	if nl := bytes.IndexByte(data, '\n'); nl >= 0 {
		header = data[:nl]
	}
	best, bestCount := ',', bytes.Count(header, []byte{','})
	for _, candidate := range []rune{';', '\t'} {
		if count := bytes.Count(header, []byte(string(candidate))); count > bestCount {
			best, bestCount = candidate, count
		}
	}
	return best
}
