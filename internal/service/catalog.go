package service

// Catalog holds the configured department and duration vocabularies. The
// valid values are deployment data, not code, so they arrive from config.
type Catalog struct {
	departments map[string]struct{}
	durations   map[string]struct{}
	deptList    []string
	durList     []string
}

// NewCatalog builds a catalog from the configured value lists.
func NewCatalog(departments, durations []string) *Catalog {
	c := &Catalog{
		departments: make(map[string]struct{}, len(departments)),
		durations:   make(map[string]struct{}, len(durations)),
	}
	for _, d := range departments {
		if _, seen := c.departments[d]; seen {
			continue
		}
		c.departments[d] = struct{}{}
		c.deptList = append(c.deptList, d)
	}
	for _, d := range durations {
		if _, seen := c.durations[d]; seen {
			continue
		}
		c.durations[d] = struct{}{}
		c.durList = append(c.durList, d)
	}
	return c
}

// HasDepartment reports whether the department is part of the catalog.
func (c *Catalog) HasDepartment(department string) bool {
	_, ok := c.departments[department]
	return ok
}

// HasDuration reports whether the duration is part of the catalog.
func (c *Catalog) HasDuration(duration string) bool {
	_, ok := c.durations[duration]
	return ok
}

// Departments returns the configured departments in configuration order.
func (c *Catalog) Departments() []string {
	return c.deptList
}

// Durations returns the configured durations in configuration order.
func (c *Catalog) Durations() []string {
	return c.durList
}
