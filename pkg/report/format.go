package report

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/autobrr/dupescan/pkg/scanerr"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
)

var formatExt = map[Format]string{
	FormatCSV:  ".csv",
	FormatTSV:  ".tsv",
	FormatJSON: ".json",
	FormatYAML: ".yaml",
	FormatText: ".txt",
}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "yml" {
		f = FormatYAML
	}
	if _, ok := formatExt[f]; !ok {
		return "", errors.Wrapf(scanerr.ErrConfiguration, "unknown report format %q", s)
	}
	return f, nil
}

// Ext returns the file extension for the format, including the dot.
func (f Format) Ext() string {
	return formatExt[f]
}

// Unit selects how sizes are printed.
type Unit string

const (
	UnitBytes Unit = "B"
	UnitKiB   Unit = "K"
	UnitMiB   Unit = "M"
	UnitGiB   Unit = "G"
	// UnitAuto picks a human readable unit per value.
	UnitAuto Unit = "X"
)

var unitDivisor = map[Unit]float64{
	UnitKiB: 1 << 10,
	UnitMiB: 1 << 20,
	UnitGiB: 1 << 30,
}

func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.ToUpper(strings.TrimSpace(s)))
	switch u {
	case UnitBytes, UnitKiB, UnitMiB, UnitGiB, UnitAuto:
		return u, nil
	case "":
		return UnitAuto, nil
	}
	return "", errors.Wrapf(scanerr.ErrConfiguration, "unknown size unit %q", s)
}

// FormatSize renders size in unit u.
func (u Unit) FormatSize(size int64) string {
	switch u {
	case UnitBytes:
		return strconv.FormatInt(size, 10)
	case UnitKiB, UnitMiB, UnitGiB:
		return strconv.FormatFloat(float64(size)/unitDivisor[u], 'f', 3, 64) + string(u)
	default:
		return humanize.IBytes(uint64(size))
	}
}
