// Package template generates the CSV template used for bulk metadata uploads.
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/vocabulary"
)

const (
	sampleTextValue = `"Sample text value"`
	dataMarker      = "# PUT YOUR DATA BELOW FOLLOWING SAMPLE ROWS. REMOVE THIS LINE AND THE SAMPLE ROWS AFTERWARDS."
	pathDescription = "A relative path to a file or a directory; use ./ for the current directory or collection."
)

// DefaultTypes are the types whose properties can be set through a metadata upload
var DefaultTypes = []string{
	vocabulary.ClassFile,
	vocabulary.ClassDirectory,
	vocabulary.ClassCollection,
}

// Generate returns the CSV metadata template for the given types, or for
// DefaultTypes when none are given. The output only depends on the
// vocabulary content.
func Generate(v *vocabulary.Vocabulary, typeIRIs ...string) (string, error) {
	explicit := len(typeIRIs) > 0
	if !explicit {
		typeIRIs = DefaultTypes
	}

	var all []domain.PropertyShape
	for _, t := range typeIRIs {
		if _, ok := v.ShapeNode(t); !ok {
			if explicit {
				return "", fmt.Errorf("%w: %s", domain.ErrUnknownType, t)
			}
			continue
		}
		all = append(all, v.PropertyShapesForType(t)...)
	}

	props := Columns(all)

	var b strings.Builder
	b.WriteString("#   This section describes the CSV-based format used for bulk metadata uploads.\n")
	fmt.Fprintf(&b, "#   Entities (e.g. %s) can be referenced by ID or unique label; multiple values must be separated by the pipe symbol |.\n", sampleEntityNames(props))
	b.WriteString("#\n")
	b.WriteString(docTable(v, props))
	b.WriteString("\n#\n")

	header := []string{`"Path"`}
	for _, ps := range props {
		header = append(header, quote(ps.Name))
	}
	b.WriteString(strings.Join(header, ","))
	if len(props) == 0 {
		b.WriteString(",")
	}
	b.WriteString("\n")

	b.WriteString(dataMarker + "\n")
	for i, path := range []string{"./", "./file1", "./file2"} {
		b.WriteString("# " + path + "," + sampleRow(props, i) + "\n")
	}

	return b.String(), nil
}

// Columns filters and orders property shapes the way the template lists
// them: machine-only shapes are dropped, shapes sharing a path keep their
// first occurrence, shapes with a numeric sh:order come first in ascending
// order and the rest follow, with ties broken by name.
func Columns(shapes []domain.PropertyShape) []domain.PropertyShape {
	seen := make(map[string]bool)
	var props []domain.PropertyShape
	for _, ps := range shapes {
		if ps.MachineOnly || seen[ps.Path] {
			continue
		}
		seen[ps.Path] = true
		props = append(props, ps)
	}

	slices.SortStableFunc(props, func(a, b domain.PropertyShape) int {
		switch {
		case a.HasOrder && !b.HasOrder:
			return -1
		case !a.HasOrder && b.HasOrder:
			return 1
		case a.HasOrder && a.Order != b.Order:
			if a.Order < b.Order {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return props
}

func docTable(v *vocabulary.Vocabulary, props []domain.PropertyShape) string {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	rows := [][]string{
		{"#", "COLUMN", "DESCRIPTION", "TYPE", "CARDINALITY", "PREDICATE"},
		{"#", "Path", pathDescription, "string", "1..1", ""},
	}
	for _, ps := range props {
		rows = append(rows, []string{"# ", ps.Name, ps.Description, typeName(v, ps), cardinality(ps), ps.Path})
	}
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Join(lines, "\n")
}

// typeName is the TYPE column: the datatype's local name, or the label of
// the referenced class for entity-valued properties
func typeName(v *vocabulary.Vocabulary, ps domain.PropertyShape) string {
	if ps.Datatype != "" {
		return vocabulary.LocalName(ps.Datatype)
	}
	if ps.Class != "" {
		return v.LabelForType(ps.Class)
	}
	return ""
}

// valueType is the local name of the datatype or class, used in sample values
func valueType(ps domain.PropertyShape) string {
	if ps.Datatype != "" {
		return vocabulary.LocalName(ps.Datatype)
	}
	if ps.Class != "" {
		return vocabulary.LocalName(ps.Class)
	}
	return ""
}

func cardinality(ps domain.PropertyShape) string {
	maxCount := "*"
	if ps.MaxCount >= 0 {
		maxCount = strconv.Itoa(ps.MaxCount)
	}
	return strconv.Itoa(ps.MinCount) + ".." + maxCount
}

func sampleEntityNames(props []domain.PropertyShape) string {
	var names []string
	for _, ps := range props {
		if ps.IsLiteral() {
			continue
		}
		names = append(names, strings.ReplaceAll(quote(ps.Name), `"`, "'"))
		if len(names) == 2 {
			break
		}
	}
	return strings.Join(names, " and ")
}

func sampleRow(props []domain.PropertyShape, i int) string {
	values := make([]string, len(props))
	for j, ps := range props {
		switch t := valueType(ps); t {
		case "string", "markdown":
			values[j] = sampleTextValue
		default:
			values[j] = t + "_" + strconv.Itoa(i)
		}
	}
	return strings.Join(values, ",")
}

// quote renders s as a JSON string without HTML escaping
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
