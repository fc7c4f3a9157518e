package domain

// GraphNode is a tag with its usage frequency.
type GraphNode struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Value      int     `json:"value"`
	SymbolSize float64 `json:"symbol_size"`
}

// GraphLink is the co-occurrence count of two tags.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Value  int    `json:"value"`
}

// Graph is the tag co-occurrence graph.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// TagFrequency is the number of entries carrying a tag.
type TagFrequency struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	Frequency int    `db:"frequency"`
}

// TagPair is the number of entries carrying both tags, with TagA < TagB by id.
type TagPair struct {
	TagA     string `db:"tag_a"`
	TagB     string `db:"tag_b"`
	Strength int    `db:"strength"`
}
