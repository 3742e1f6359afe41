package transcript

import (
	"encoding/json"

	"github.com/zhouzirui/whats-eat/backend/internal/model/wire"
)

func jsonString(s string) (string, error) {
	data, err := json.Marshal(s)
	return string(data), err
}

func raws(records ...string) []wire.RawMessage {
	out := make([]wire.RawMessage, 0, len(records))
	for _, record := range records {
		out = append(out, wire.RawMessage(record))
	}
	return out
}
