package executor

import "encoding/json"

func jsonUnmarshalLenient(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
