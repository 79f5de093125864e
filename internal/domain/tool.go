package domain

import "strings"

// Tool описывает вызываемую способность, доступную по сетевому Endpoint.
type Tool struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description *string                `json:"description"`
	Endpoint    string                 `json:"endpoint"`
	Config      map[string]interface{} `json:"config"`
}

func (t Tool) Key() string { return t.ID }

func (t Tool) WithKey(id string) Tool {
	t.ID = id
	return t
}

func (t Tool) Clone() Tool {
	t.Description = cloneString(t.Description)
	t.Config = cloneConfig(t.Config)
	return t
}

// Validate: name и endpoint должны быть непустыми.
func (t Tool) Validate() error {
	var missing []string
	if t.Name == "" {
		missing = append(missing, "name")
	}
	if t.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if len(missing) > 0 {
		return Invalidf("field required: %s", strings.Join(missing, ", "))
	}
	return nil
}
