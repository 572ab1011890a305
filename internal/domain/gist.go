package domain

// Gist represents a user's gist. File content is only present when the gist
// was fetched by id; list responses leave it nil.
type Gist struct {
	ID    string
	Files map[string]GistFile
}

// GistFile represents one file of a gist
type GistFile struct {
	Filename string
	Content  *string
}

// HasFile reports whether the gist contains a file with the given name
func (g *Gist) HasFile(name string) bool {
	_, ok := g.Files[name]
	return ok
}
