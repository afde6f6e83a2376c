package discovery

import "context"

// Static is a fixed host list provider. Membership never changes.
type Static struct {
	hosts []string
}

// NewStatic builds a provider from a pre-split host list.
func NewStatic(hosts []string) *Static {
	return &Static{hosts: normalize(hosts)}
}

// Hosts implements Provider.
func (s *Static) Hosts() []string {
	out := make([]string, len(s.hosts))
	copy(out, s.hosts)
	return out
}

// Watch implements Provider. The static provider never emits updates.
func (s *Static) Watch(ctx context.Context) <-chan []string {
	ch := make(chan []string)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}
