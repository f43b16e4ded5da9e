package kafka

import "github.com/segmentio/kafka-go"

// mapCarrierHeaders lets the otel propagator write trace context into kafka headers.
type mapCarrierHeaders map[string]string

func (m mapCarrierHeaders) Get(k string) string { return m[k] }
func (m mapCarrierHeaders) Set(k, v string)     { m[k] = v }
func (m mapCarrierHeaders) Keys() []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	return ks
}

func (m mapCarrierHeaders) ToKafka() []kafka.Header {
	hs := make([]kafka.Header, 0, len(m))
	for k, v := range m {
		hs = append(hs, kafka.Header{Key: k, Value: []byte(v)})
	}
	return hs
}
