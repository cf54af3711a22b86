package identity

// Branded id types. Each is a plain string at runtime, but the distinct
// types keep a CardID from being passed where an EdgeID is expected. The
// Parse constructors are the only sanctioned way to brand untrusted text.

type (
	OrgID        string
	UserID       string
	CollectionID string
	ThreadID     string
	MessageID    string
	DataSourceID string
	CardID       string
	EdgeID       string
	ComponentID  string
)

func ParseOrgID(text string) (OrgID, error) {
	if err := Validate(Org, text); err != nil {
		return "", err
	}
	return OrgID(text), nil
}

func ParseUserID(text string) (UserID, error) {
	if err := Validate(User, text); err != nil {
		return "", err
	}
	return UserID(text), nil
}

func ParseCollectionID(text string) (CollectionID, error) {
	if err := Validate(Collection, text); err != nil {
		return "", err
	}
	return CollectionID(text), nil
}

func ParseThreadID(text string) (ThreadID, error) {
	if err := Validate(Thread, text); err != nil {
		return "", err
	}
	return ThreadID(text), nil
}

func ParseMessageID(text string) (MessageID, error) {
	if err := Validate(Message, text); err != nil {
		return "", err
	}
	return MessageID(text), nil
}

func ParseDataSourceID(text string) (DataSourceID, error) {
	if err := Validate(DataSource, text); err != nil {
		return "", err
	}
	return DataSourceID(text), nil
}

func ParseCardID(text string) (CardID, error) {
	if err := Validate(CanvasCard, text); err != nil {
		return "", err
	}
	return CardID(text), nil
}

func ParseEdgeID(text string) (EdgeID, error) {
	if err := Validate(CanvasEdge, text); err != nil {
		return "", err
	}
	return EdgeID(text), nil
}

func ParseComponentID(text string) (ComponentID, error) {
	if err := Validate(CanvasComponent, text); err != nil {
		return "", err
	}
	return ComponentID(text), nil
}

// NewCardID mints a card id scoped to tenantScope.
func NewCardID(tenantScope uint32) CardID {
	return CardID(MustNew(CanvasCard, tenantScope))
}

// NewEdgeID mints an edge id scoped to tenantScope.
func NewEdgeID(tenantScope uint32) EdgeID {
	return EdgeID(MustNew(CanvasEdge, tenantScope))
}

// NewComponentID mints a component id scoped to tenantScope.
func NewComponentID(tenantScope uint32) ComponentID {
	return ComponentID(MustNew(CanvasComponent, tenantScope))
}
