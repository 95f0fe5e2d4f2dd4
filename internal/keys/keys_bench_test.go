package keys

import "testing"

func BenchmarkFor(b *testing.B) {
	b.ReportAllocs()
	var sink Queue
	for i := 0; i < b.N; i++ {
		sink = For("stripe-events")
	}
	_ = sink
}

func BenchmarkBuilders(b *testing.B) {
	cases := []struct {
		name string
		fn   func(string) string
	}{
		{"Pending", Pending},
		{"Prioritized", Prioritized},
		{"Active", Active},
		{"Delayed", Delayed},
		{"Succeeded", Succeeded},
		{"Failed", Failed},
		{"Unique", Unique},
	}
	for _, c := range cases {
		b.Run(c.name, func(b *testing.B) {
			b.ReportAllocs()
			var s string
			for i := 0; i < b.N; i++ {
				s = c.fn("maintenance-jobs-dlq")
			}
			_ = s
		})
	}
}
