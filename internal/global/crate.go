package global

import (
	"github.com/kestrelmedia/archivist/internal/clients/downloader"
	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
	"github.com/kestrelmedia/archivist/internal/clients/metadataprovider"
	"github.com/kestrelmedia/archivist/internal/clients/notifier"
	"github.com/kestrelmedia/archivist/internal/clients/translator"
	"github.com/kestrelmedia/archivist/internal/db/repository"
	"github.com/kestrelmedia/archivist/internal/ratelimit"
	"github.com/kestrelmedia/archivist/internal/selfupdate"
)

// Crate aggregates every long-lived service instance, mirroring the
// teacher's internal/services/crate.go aggregation pattern. Components
// reach their collaborators through ctx.Crate() rather than constructor
// parameter lists.
type Crate struct {
	Store *repository.Queries

	MediaServer      mediaserver.Client
	MetadataProvider metadataprovider.Client
	Downloader       downloader.Client
	Notifier         notifier.Client
	Translator       translator.Client

	RateLimiter *ratelimit.Limiter
	Quota       *ratelimit.Quota
	SelfUpdate  *selfupdate.Markers
}
