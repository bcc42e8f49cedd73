package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/vbonduro/jartrack/internal/domain"
)

func (a *app) printf(format string, args ...any) error {
	_, err := fmt.Fprintf(a.out, format, args...)
	return err
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// emit prints v as JSON under --json and calls text otherwise.
func (a *app) emit(v any, text func() error) error {
	if a.jsonOutput {
		return a.printJSON(v)
	}
	return text()
}

// table prints tab separated rows aligned in columns, trimming the padding
// tabwriter leaves at the end of each line.
func (a *app) table(header string, rows [][]string) error {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, header)
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		if err := a.printf("%s\n", strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id < 1 {
		return 0, domain.InvalidArgumentf("invalid %s id %q", kind, s)
	}
	return id, nil
}

func itoa[T ~int | ~int64](n T) string { return strconv.FormatInt(int64(n), 10) }

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func jarState(j *domain.Jar) string {
	if j.Used {
		return "used " + j.UsedDate
	}
	return "available"
}
