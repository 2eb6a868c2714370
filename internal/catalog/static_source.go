package catalog

import "context"

// StaticSource serves a fixed catalog. Used in tests and for deployments that
// configure the clinic through the environment rather than admin tables.
type StaticSource struct {
	services map[string]Service
	ordered  []Service
	template WeeklyTemplate
}

func NewStaticSource(services []Service, tpl WeeklyTemplate) *StaticSource {
	byID := make(map[string]Service, len(services))
	for _, s := range services {
		byID[s.ID] = s
	}
	return &StaticSource{
		services: byID,
		ordered:  services,
		template: tpl,
	}
}

func (src *StaticSource) ServiceByID(ctx context.Context, id string) (*Service, error) {
	s, ok := src.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	return &s, nil
}

func (src *StaticSource) Services(ctx context.Context) ([]Service, error) {
	out := make([]Service, len(src.ordered))
	copy(out, src.ordered)
	return out, nil
}

func (src *StaticSource) Template(ctx context.Context) (WeeklyTemplate, error) {
	return src.template, nil
}
