package partial

import (
	"encoding/json"
	"errors"

	"github.com/kaptinlin/jsonrepair"

	"github.com/markis/gh-streamdoc/internal/record"
)

// parseSection decodes the text of a balanced section. When the text has a
// syntax error it is repaired with jsonrepair and decoded again; the
// original error is returned if the repair does not help.
func parseSection(data []byte) (record.Section, error) {
	sec, err := record.ParseSection(data)
	if err == nil {
		return sec, nil
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return record.Section{}, err
	}
	fixed, repairErr := jsonrepair.JSONRepair(string(data))
	if repairErr != nil {
		return record.Section{}, err
	}
	sec, repairErr = record.ParseSection([]byte(fixed))
	if repairErr != nil {
		return record.Section{}, err
	}
	return sec, nil
}
