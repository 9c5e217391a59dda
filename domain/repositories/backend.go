package repositories

import (
	"context"

	"github.com/lazypandaa/gramvaani-client/domain/entities"
)

// TokenSource supplies the bearer token attached to protected requests. The
// session manager is the only writer; the request client only reads.
type TokenSource interface {
	Token() string
}

// Backend is the remote inference service consumed by the pipeline. Every
// implementation must apply the same timeout and retry policy to every call.
type Backend interface {
	Login(ctx context.Context, creds entities.Credentials) (string, error)
	Signup(ctx context.Context, profile entities.SignupProfile) (string, error)
	Me(ctx context.Context) (*entities.User, error)
	UpdateProfile(ctx context.Context, user entities.User) (*entities.User, error)
	UserQueries(ctx context.Context) ([]entities.QueryRecord, error)

	ProcessAudio(ctx context.Context, wavData []byte, language string) (*entities.QueryResponse, error)
	ProcessText(ctx context.Context, text string, language string) (*entities.QueryResponse, error)

	Weather(ctx context.Context, city string, language string) (*entities.QueryResponse, error)
	CropPrices(ctx context.Context, crop string, market string, language string) (*entities.QueryResponse, error)
	GovSchemes(ctx context.Context, topic string, language string) (*entities.QueryResponse, error)

	Location(ctx context.Context) (string, error)
	ReverseGeocode(ctx context.Context, latitude float64, longitude float64) (string, error)
}
