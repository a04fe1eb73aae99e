package result

// OutageTable maps the outage ids of one result file to their names.
type OutageTable struct {
	names map[int]string
}

// NewOutageTable returns an empty table.
func NewOutageTable() *OutageTable {
	return &OutageTable{names: make(map[int]string)}
}

// Register declares outage id. A later declaration of the same id wins.
func (t *OutageTable) Register(id int, name string) { t.names[id] = name }

// Resolve returns the name of outage id.
func (t *OutageTable) Resolve(id int) (string, error) {
	name, ok := t.names[id]
	if !ok {
		return "", &UnknownOutageError{ID: id}
	}
	return name, nil
}

func (t *OutageTable) Len() int { return len(t.names) }
