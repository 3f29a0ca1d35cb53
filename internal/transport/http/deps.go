package http

import (
	"github.com/Eldan-star/ResearchCollab/internal/infrastructure/dynamo"
	"github.com/Eldan-star/ResearchCollab/internal/infrastructure/google"
	jwtinfra "github.com/Eldan-star/ResearchCollab/internal/infrastructure/jwt"
	s3infra "github.com/Eldan-star/ResearchCollab/internal/infrastructure/s3"
	"github.com/Eldan-star/ResearchCollab/internal/infrastructure/smtp"
	"github.com/Eldan-star/ResearchCollab/internal/infrastructure/sns"
	"github.com/Eldan-star/ResearchCollab/internal/realtime"
)

// Deps holds all infrastructure dependencies for the router. JWTProvider,
// GoogleVerifier, and PushPublisher may be nil to disable the corresponding
// feature.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	ProfileRepo      *dynamo.ProfileRepo
	SessionRepo      *dynamo.SessionRepo
	NotificationRepo *dynamo.NotificationRepo
	ProjectRepo      *dynamo.ProjectRepo
	ApplicationRepo  *dynamo.ApplicationRepo
	MilestoneRepo    *dynamo.MilestoneRepo
	MessageRepo      *dynamo.MessageRepo
	FileRepo         *dynamo.FileRepo
	VerificationRepo *dynamo.VerificationRepo
	S3Store          *s3infra.Store
	Mailer           smtp.Mailer
	PushPublisher    sns.PushPublisher
	JWTProvider      *jwtinfra.Provider
	GoogleVerifier   *google.Verifier
	Broker           *realtime.Broker
}
