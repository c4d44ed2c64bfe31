package sdmx

import "context"

// Code is one entry of a codelist.
type Code struct {
	ID    string
	Names Names
}

// Codelist is a flattened codelist message. When a message carries several
// codelists, their codes are concatenated in document order and the
// identity fields come from the first one.
type Codelist struct {
	ID      string
	Agency  string
	Version string
	Names   Names
	Codes   []Code
}

// CodeIDs returns the ids of every code, in document order.
func (cl *Codelist) CodeIDs() []string {
	ids := make([]string, 0, len(cl.Codes))
	for _, c := range cl.Codes {
		if c.ID != "" {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// ParseCodelist reads a codelist message.
func ParseCodelist(data []byte) (*Codelist, error) {
	var msg xmlStructureMessage
	if err := decode("codelist", data, &msg); err != nil {
		return nil, err
	}
	cl := &Codelist{}
	if msg.Structures.Codelists == nil {
		return cl, nil
	}
	for i, x := range msg.Structures.Codelists.Codelists {
		if i == 0 {
			cl.ID, cl.Agency, cl.Version, cl.Names = x.ID, x.AgencyID, x.Version, x.Names
		}
		for _, c := range x.Codes {
			cl.Codes = append(cl.Codes, Code{ID: c.ID, Names: c.Names})
		}
	}
	return cl, nil
}

// ParseCodelistName returns the English name of the first codelist in data,
// or NameNotFound when it has none.
func ParseCodelistName(data []byte) (string, error) {
	cl, err := ParseCodelist(data)
	if err != nil {
		return "", err
	}
	if name, ok := cl.Names.Get("en"); ok {
		return name, nil
	}
	return NameNotFound, nil
}

// CodelistName fetches codelist ref and returns its English name.
func (c *Client) CodelistName(ctx context.Context, ref string) (string, error) {
	body, err := c.Fetch(ctx, c.CodelistURL(ref))
	if err != nil {
		return "", err
	}
	return ParseCodelistName(body)
}

// FetchCodelist fetches and parses codelist ref.
func (c *Client) FetchCodelist(ctx context.Context, ref string) (*Codelist, []byte, error) {
	body, err := c.Fetch(ctx, c.CodelistURL(ref))
	if err != nil {
		return nil, nil, err
	}
	cl, err := ParseCodelist(body)
	if err != nil {
		return nil, body, err
	}
	return cl, body, nil
}
