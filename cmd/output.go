package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// render encodes v as pretty-printed JSON or as YAML.
func render(w io.Writer, format string, v interface{}) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "yaml":
		data, err = yaml.Marshal(v)
	default:
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("marshal %s: %w", format, err)
	}
	_, err = w.Write(data)
	return err
}
