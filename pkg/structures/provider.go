package structures

// Provider identifies the flavour of the external Media Server.
type Provider string

const (
	ProviderEmby     Provider = "emby"
	ProviderJellyfin Provider = "jellyfin"
)

func (p Provider) String() string { return string(p) }
