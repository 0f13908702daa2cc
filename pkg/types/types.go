package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/diwise/senml"
)

// RecordFetched carries one sensor reading fetched from the WSN API.
type RecordFetched struct {
	ID        string     `json:"id"`
	Mote      string     `json:"mote,omitempty"`
	Sensor    string     `json:"sensor,omitempty"`
	Pack      senml.Pack `json:"pack"`
	Timestamp time.Time  `json:"timestamp"`
}

func (r *RecordFetched) Body() []byte {
	b, _ := json.Marshal(r)
	return b
}
func (r *RecordFetched) ContentType() string {
	if r.Sensor == "" {
		return "application/vnd.wsn.record+json"
	}
	return fmt.Sprintf("application/vnd.wsn.%s+json", strings.ToLower(r.Sensor))
}
func (r *RecordFetched) TopicName() string {
	return "wsn.record.fetched"
}
