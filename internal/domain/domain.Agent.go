package domain

// Agent описывает зарегистрированного разговорного агента.
type Agent struct {
	ID          string  `json:"id"`          // UUID, выдается при регистрации, если не задан
	Code        string  `json:"code"`        // Обязательное поле, может быть пустой строкой
	Description *string `json:"description"` // null, если не задано

	// Непрозрачный набор настроек, форма не проверяется
	Config map[string]interface{} `json:"config"`
}

// Key implements registry.Entity.
func (a Agent) Key() string { return a.ID }

// WithKey implements registry.Entity.
func (a Agent) WithKey(id string) Agent {
	a.ID = id
	return a
}

// Clone implements registry.Entity.
func (a Agent) Clone() Agent {
	a.Description = cloneString(a.Description)
	a.Config = cloneConfig(a.Config)
	return a
}

// Validate: у агента нет полей с ограничениями на значение. Наличие code
// проверяется при разборе запроса, пустая строка допустима.
func (a Agent) Validate() error {
	return nil
}
