package salesaskctl

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/salesask/salesask/internal/schema"
)

type salesPage struct {
	Data   []map[string]any `json:"data"`
	Count  int              `json:"count"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

func newSalesCommand(api func() *client, stdout io.Writer) *cobra.Command {
	var (
		limit  int
		offset int
		raw    bool
	)
	cmd := &cobra.Command{
		Use:   "sales",
		Short: "GET /v1/sales and render the newest sales as a table",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			query := url.Values{}
			query.Set("limit", strconv.Itoa(limit))
			query.Set("offset", strconv.Itoa(offset))
			body, err := api().do(cmd.Context(), http.MethodGet, "/v1/sales?"+query.Encode(), nil)
			if err != nil {
				return err
			}
			if raw {
				printJSON(stdout, body)
				return nil
			}
			var page salesPage
			if err := json.Unmarshal(body, &page); err != nil {
				return fmt.Errorf("decode sales response: %w", err)
			}
			rendered, err := renderSales(page)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(stdout, rendered)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 25, "rows per page (max 500)")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	cmd.Flags().BoolVar(&raw, "json", false, "print the raw JSON response")
	return cmd
}

func renderSales(page salesPage) (string, error) {
	table, _ := schema.CoffeeSales().Table(schema.SalesTable)
	columns := table.ColumnNames()

	data := pterm.TableData{columns}
	for _, record := range page.Data {
		row := make([]string, 0, len(columns))
		for _, column := range columns {
			row = append(row, cell(record[column]))
		}
		data = append(data, row)
	}
	rendered, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return "", fmt.Errorf("render sales table: %w", err)
	}
	footer := fmt.Sprintf("%d rows (limit %d, offset %d)", page.Count, page.Limit, page.Offset)
	return rendered + "\n" + footer, nil
}

func cell(value any) string {
	switch typed := value.(type) {
	case nil:
		return "-"
	case float64:
		return strconv.FormatFloat(typed, 'f', 2, 64)
	default:
		return fmt.Sprint(typed)
	}
}
