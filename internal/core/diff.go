package core

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/illarion/safe/internal/model"
)

const maskedValue = "********"

// renderCollection formats a collection one field per line so that line
// diffs stay readable. Values are masked unless reveal is set.
func renderCollection(coll *model.Collection, reveal bool) string {
	var b strings.Builder
	for _, record := range coll.Records {
		fmt.Fprintf(&b, "[%s]\n", record.Name)
		for _, field := range record.Fields {
			value := field.Value
			if !reveal {
				value = maskedValue
			}
			fmt.Fprintf(&b, "%s = %s\n", field.Name, value)
		}
	}
	return b.String()
}

// DiffCollections generates a full-context line diff from current to
// incoming. Returns an empty string if the rendered collections are identical.
func DiffCollections(current, incoming *model.Collection, reveal bool) string {
	from := renderCollection(current, reveal)
	to := renderCollection(incoming, reveal)
	if from == to {
		return ""
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff for better output
	a, b, lineArray := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var result strings.Builder
	fmt.Fprintf(&result, "--- safe/%s\n", current.Name)
	fmt.Fprintf(&result, "+++ import/%s\n", incoming.Name)
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			result.WriteString(prefix)
			result.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				result.WriteString("\n")
			}
		}
	}
	return result.String()
}
