package handle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const solveSchema = `{
  "type": "object",
  "properties": {
    "text":  {"type": "string", "minLength": 1, "maxLength": 20000},
    "llm":   {"type": "boolean"},
    "owner": {"type": "string", "maxLength": 128}
  },
  "required": ["text"],
  "additionalProperties": false
}`

const recognizeSchema = `{
  "type": "object",
  "properties": {
    "image_b64": {"type": "string", "minLength": 1},
    "mime":      {"type": "string", "pattern": "^image/[a-z0-9.+-]+$"},
    "engine":    {"type": "string", "enum": ["", "gemini", "vision", "ocr"]},
    "owner":     {"type": "string", "maxLength": 128}
  },
  "required": ["image_b64"],
  "additionalProperties": false
}`

var (
	solveRequestSchema     = jsonschema.MustCompileString("solve.schema.json", solveSchema)
	recognizeRequestSchema = jsonschema.MustCompileString("recognize.schema.json", recognizeSchema)
)

var errBodyTooLarge = errors.New("request body too large")

// decodeBody reads at most limit bytes, validates them against schema and
// decodes them into dst.
func decodeBody(r *http.Request, schema *jsonschema.Schema, limit int64, dst any) error {
	defer r.Body.Close()
	b, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if int64(len(b)) > limit {
		return errBodyTooLarge
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("bad json: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("bad json: %w", err)
	}
	return nil
}

func writeDecodeError(w http.ResponseWriter, err error) {
	code := http.StatusBadRequest
	if errors.Is(err, errBodyTooLarge) {
		code = http.StatusRequestEntityTooLarge
	}
	http.Error(w, err.Error(), code)
}
