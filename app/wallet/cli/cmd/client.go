package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

var client = http.Client{Timeout: 5 * time.Minute}

// errorResponse is how the node reports a failed request.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// get calls the node and decodes the response into v.
func get(path string, v any) error {
	resp, err := client.Get(url + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decode(resp, v)
}

// post sends the value as json to the node and decodes the response into v.
// A rejected request decodes into v as well when the node reports why.
func post(path string, body any, v any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := client.Post(url+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decode(resp, v)
}

func decode(resp *http.Response, v any) error {
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("decoding response, status %d: %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		var er errorResponse
		json.Unmarshal(raw, &er)
		return fmt.Errorf("node error, status %d: %s", resp.StatusCode, er.Error)
	}

	if resp.StatusCode != http.StatusOK {
		var er errorResponse
		if err := json.Unmarshal(raw, &er); err == nil && er.Error != "" {
			if len(er.Fields) > 0 {
				return fmt.Errorf("%s: %v", er.Error, er.Fields)
			}
			return fmt.Errorf("%s", er.Error)
		}
	}

	return json.Unmarshal(raw, v)
}
