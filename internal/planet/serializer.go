package planet

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"planets-api/internal/shared/errors"
)

const maxNameLength = 255

const (
	msgRequired      = "This field is required."
	msgNull          = "This field may not be null."
	msgBlank         = "This field may not be blank."
	msgInvalidString = "Not a valid string."
	msgInvalidInt    = "A valid integer is required."
	msgNegative      = "Ensure this value is greater than or equal to 0."
	msgNoData        = "No data provided"
	msgNullChar      = "Null characters are not allowed."
)

var msgNameTooLong = fmt.Sprintf("Ensure this field has no more than %d characters.", maxNameLength)

// trailing ".0" is tolerated on integers, e.g. 12.0 or "12.00"
var integralSuffix = regexp.MustCompile(`\.0*\s*$`)

// PlanetInput is the writable part of a planet: everything a client may set on create or replace.
// PopulationSet is false when the body has no population key, so a replace keeps the stored value.
type PlanetInput struct {
	Name          string
	Population    *int64
	PopulationSet bool
}

// DecodePlanetInput parses and validates a create/replace request body.
// id, terrains, climates and unknown keys are ignored.
func DecodePlanetInput(body []byte) (PlanetInput, error) {
	var input PlanetInput

	data, err := decodeObject(body)
	if err != nil {
		return input, err
	}

	fields := errors.FieldErrors{}

	if name, ok := validateName(fields, "name", data); ok {
		input.Name = name
	}

	raw, present := data["population"]
	input.PopulationSet = present
	if present && raw != nil {
		population, msg := parseCount(raw)
		if msg != "" {
			fields.Add("population", msg)
		} else {
			input.Population = &population
		}
	}

	if !fields.Empty() {
		return PlanetInput{}, errors.InvalidFields(fields)
	}
	return input, nil
}

// ValidateFeatureName applies the terrain/climate name rules to an already-decoded name.
func ValidateFeatureName(name string) (string, error) {
	fields := errors.FieldErrors{}
	cleaned, ok := validateName(fields, "name", map[string]interface{}{"name": name})
	if !ok {
		return "", errors.InvalidFields(fields)
	}
	return cleaned, nil
}

func decodeObject(body []byte) (map[string]interface{}, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return map[string]interface{}{}, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return nil, errors.WrapValidation("JSON parse error", err)
	}
	if decoder.More() {
		return nil, errors.Validation("JSON parse error: unexpected data after top-level value")
	}

	switch v := value.(type) {
	case map[string]interface{}:
		return v, nil
	case nil:
		return nil, errors.InvalidFields(errors.FieldErrors{"non_field_errors": {msgNoData}})
	default:
		msg := fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", jsonTypeName(v))
		return nil, errors.InvalidFields(errors.FieldErrors{"non_field_errors": {msg}})
	}
}

func validateName(fields errors.FieldErrors, key string, data map[string]interface{}) (string, bool) {
	raw, present := data[key]
	if !present {
		fields.Add(key, msgRequired)
		return "", false
	}

	var name string
	switch v := raw.(type) {
	case nil:
		fields.Add(key, msgNull)
		return "", false
	case string:
		name = v
	case json.Number:
		name = v.String()
	default:
		fields.Add(key, msgInvalidString)
		return "", false
	}

	if strings.ContainsRune(name, 0) {
		fields.Add(key, msgNullChar)
		return "", false
	}

	name = strings.TrimSpace(name)
	if name == "" {
		fields.Add(key, msgBlank)
		return "", false
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		fields.Add(key, msgNameTooLong)
		return "", false
	}
	return name, true
}

// parseCount accepts JSON integers, integral decimals and integer strings that are >= 0.
// It returns a non-empty message when raw is rejected.
func parseCount(raw interface{}) (int64, string) {
	var text string
	switch v := raw.(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
	default:
		return 0, msgInvalidInt
	}

	text = integralSuffix.ReplaceAllString(text, "")
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		if strings.HasPrefix(text, "-") && stderrors.Is(err, strconv.ErrRange) {
			return 0, msgNegative
		}
		return 0, msgInvalidInt
	}
	if n < 0 {
		return 0, msgNegative
	}
	return n, ""
}

func jsonTypeName(v interface{}) string {
	switch t := v.(type) {
	case []interface{}:
		return "list"
	case string:
		return "str"
	case bool:
		return "bool"
	case json.Number:
		if strings.ContainsAny(t.String(), ".eE") {
			return "float"
		}
		return "int"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// FeatureView is the wire form of a terrain or climate.
type FeatureView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PlanetView is the wire form of a planet. Terrains and climates are read-only.
type PlanetView struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	Population *int64        `json:"population"`
	Terrains   []FeatureView `json:"terrains"`
	Climates   []FeatureView `json:"climates"`
}

func NewPlanetView(p *Planet) PlanetView {
	return PlanetView{
		ID:         p.ID,
		Name:       p.Name,
		Population: p.Population,
		Terrains:   newFeatureViews(p.Terrains),
		Climates:   newFeatureViews(p.Climates),
	}
}

func NewPlanetViews(planets []Planet) []PlanetView {
	views := make([]PlanetView, 0, len(planets))
	for i := range planets {
		views = append(views, NewPlanetView(&planets[i]))
	}
	return views
}

func newFeatureViews(features []Feature) []FeatureView {
	views := make([]FeatureView, 0, len(features))
	for _, f := range features {
		views = append(views, FeatureView(f))
	}
	return views
}
