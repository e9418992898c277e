// Package filter builds the ffmpeg filter graphs used to reproject GoPro EAC
// footage into equirectangular frames.
package filter

import (
	_ "embed"
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/template"

	"github.com/lepinkainen/equirender/media"
)

//go:embed templates/eac_to_equirect.txt
var eacTemplateSource string

var eacTemplate = mustCompile(strings.TrimSpace(eacTemplateSource))

// mustCompile parses the graph template and renders it once with zero values
// so a template referencing unknown fields fails at startup.
func mustCompile(src string) *template.Template {
	t := template.Must(template.New("eac").Parse(src))
	if err := t.Execute(new(strings.Builder), templateValues{}); err != nil {
		panic(fmt.Sprintf("filter: invalid eac template: %v", err))
	}
	return t
}

// OutputLabel is the filter graph pad that carries the reprojected frames.
const OutputLabel = "[out]"

// SelectCondition restricts which decoded frames reach the reprojection stage.
type SelectCondition struct {
	KeyFramesOnly bool
	// MinFrameDistance is the minimum time in seconds between two selected
	// frames. Nil or non-positive disables the check.
	MinFrameDistance *float64
}

type templateValues struct {
	Select string
	Yaw    string
	Pitch  string
	Roll   string
}

// BuildAvFilter renders the reprojection filter graph for the given frame
// selection and rotation. Both arguments are optional.
func BuildAvFilter(cond *SelectCondition, rot *media.FrameRotation) string {
	var r media.FrameRotation
	if rot != nil {
		r = *rot
	}

	values := templateValues{
		Select: selectClause(cond),
		Yaw:    strconv.Itoa(r.Yaw),
		Pitch:  strconv.Itoa(r.Pitch),
		Roll:   strconv.Itoa(r.Roll),
	}

	graph, err := render(eacTemplate, values)
	if err != nil {
		panic(err)
	}
	return graph
}

func render(t *template.Template, values templateValues) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, values); err != nil {
		return "", fmt.Errorf("failed to render filter graph: %w", err)
	}
	return sb.String(), nil
}

// EffectiveFrameDistance rounds d to one decimal place with a floor of one second.
func EffectiveFrameDistance(d float64) float64 {
	return math.Max(1, math.Round(d*10)/10)
}

func selectClause(cond *SelectCondition) string {
	if cond == nil {
		return ""
	}

	var predicates []string
	if cond.KeyFramesOnly {
		predicates = append(predicates, `eq(pict_type\,I)`)
	}
	if cond.MinFrameDistance != nil && *cond.MinFrameDistance > 0 {
		d := strconv.FormatFloat(EffectiveFrameDistance(*cond.MinFrameDistance), 'f', -1, 64)
		// prev_selected_t is NaN until the first frame has been selected
		predicates = append(predicates, `(isnan(prev_selected_t)+gte(t-prev_selected_t\,`+d+`))`)
	}
	if len(predicates) == 0 {
		return ""
	}

	// ffmpeg expressions have no boolean operators; multiplying 0/1 results is AND.
	return "select='" + strings.Join(predicates, "*") + "',"
}
