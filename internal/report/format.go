/*
Report assembly. Items produced by the valuation engine are turned into display rows with rounded string
fields and rendered as JSON or as a plain-text table.
*/

package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/elys-network/lp-tracker/internal/types"
)

var ErrUnknownFormat = errors.New("unknown report format")

const (
	FormatJSON  = "json"
	FormatTable = "table"

	// DepositTimeLayout renders as YY/MM/DD HH:mm:ss.
	DepositTimeLayout = "06/01/02 15:04:05"

	DefaultDigits = 4
	USDDigits     = 2
	DaysDigits    = 4
)

// Row is the display form of a portfolio item.
type Row struct {
	Type           string `json:"type"`
	Name           string `json:"name"`
	Address        string `json:"address"`
	Mode           string `json:"mode"`
	DepositTime    string `json:"depositTime"`
	DepositAsset0  string `json:"depositAsset0"`
	DepositAsset1  string `json:"depositAsset1"`
	DepositAmount0 string `json:"depositAmount0"`
	DepositAmount1 string `json:"depositAmount1"`
	DepositValue0  string `json:"depositValue0"`
	DepositValue1  string `json:"depositValue1"`
	DepositValue   string `json:"depositValue"`
	RewardAsset0   string `json:"rewardAsset0"`
	RewardAsset1   string `json:"rewardAsset1"`
	RewardAmount0  string `json:"rewardAmount0"`
	RewardAmount1  string `json:"rewardAmount1"`
	RewardValue0   string `json:"rewardValue0"`
	RewardValue1   string `json:"rewardValue1"`
	RewardValue    string `json:"rewardValue"`
	TotalDays      string `json:"totalDays"`
	TotalBlocks    string `json:"totalBlocks"`
	APR            string `json:"apr"`
	APY            string `json:"apy,omitempty"`
	DepositLink    string `json:"depositLink"`
}

// RoundToSignificantDigits rounds values of magnitude 1 or more to n decimal places and smaller values to
// n significant digits. Trailing zeros are dropped.
func RoundToSignificantDigits(v float64, n int) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	if n <= 0 {
		n = DefaultDigits
	}

	d := decimal.NewFromFloat(v)
	if math.Abs(v) >= 1 {
		return d.Round(int32(n)).String()
	}
	exponent := int(math.Floor(math.Log10(math.Abs(v))))
	return d.Round(int32(n - 1 - exponent)).String()
}

// FormatDepositTime renders a deposit time in UTC.
func FormatDepositTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DepositTimeLayout)
}

// BuildRows converts items to display rows, keeping their order.
func BuildRows(items []types.PortfolioItem) []Row {
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		row := Row{
			Type:         item.Type,
			Name:         item.Name,
			Address:      item.Address,
			Mode:         item.Mode.String(),
			DepositTime:  FormatDepositTime(item.DepositTime),
			DepositValue: RoundToSignificantDigits(item.DepositValue, USDDigits),
			RewardValue:  RoundToSignificantDigits(item.RewardValue, USDDigits),
			TotalDays:    RoundToSignificantDigits(item.TotalDays, DaysDigits),
			TotalBlocks:  strconv.FormatInt(item.TotalBlocks, 10),
			APR:          RoundToSignificantDigits(item.APR, DefaultDigits),
			DepositLink:  item.Link,
		}
		if item.APY != 0 {
			row.APY = RoundToSignificantDigits(item.APY, DefaultDigits)
		}

		row.DepositAsset0, row.DepositAmount0, row.DepositValue0 = tuple(item.Deposits, 0)
		row.DepositAsset1, row.DepositAmount1, row.DepositValue1 = tuple(item.Deposits, 1)
		row.RewardAsset0, row.RewardAmount0, row.RewardValue0 = tuple(item.Rewards, 0)
		row.RewardAsset1, row.RewardAmount1, row.RewardValue1 = tuple(item.Rewards, 1)

		rows = append(rows, row)
	}
	return rows
}

func tuple(values []types.AssetValue, i int) (asset, amount, value string) {
	if i >= len(values) {
		return "", "", ""
	}
	v := values[i]
	return v.Asset, RoundToSignificantDigits(v.Amount, DefaultDigits), RoundToSignificantDigits(v.ValueUSD, DefaultDigits)
}

// Render writes the items in the requested format.
func Render(w io.Writer, items []types.PortfolioItem, format string) error {
	rows := BuildRows(items)
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case FormatTable:
		return renderTable(w, rows)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func renderTable(w io.Writer, rows []Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMODE\tDEPOSIT TIME\tDEPOSIT\tDEPOSIT USD\tREWARD\tREWARD USD\tDAYS\tBLOCKS\tAPR %")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Name,
			r.Mode,
			r.DepositTime,
			joinTuple(r.DepositAmount0, r.DepositAsset0, r.DepositAmount1, r.DepositAsset1),
			r.DepositValue,
			joinTuple(r.RewardAmount0, r.RewardAsset0, r.RewardAmount1, r.RewardAsset1),
			r.RewardValue,
			r.TotalDays,
			r.TotalBlocks,
			r.APR,
		)
	}
	return tw.Flush()
}

func joinTuple(amount0, asset0, amount1, asset1 string) string {
	switch {
	case asset0 == "" && asset1 == "":
		return "-"
	case asset1 == "":
		return amount0 + " " + asset0
	default:
		return amount0 + " " + asset0 + " + " + amount1 + " " + asset1
	}
}
