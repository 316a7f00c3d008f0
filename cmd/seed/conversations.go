package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	models "flowbot/internal/domain/models/assistant"
	svc "flowbot/internal/domain/services/assistant"
	"flowbot/internal/repository/demo"
	"flowbot/internal/service/assistant/actions"
	"flowbot/internal/service/assistant/conversation"
)

// seedConversation is a scripted session: questions first, then an
// optional hypothesis test.
type seedConversation struct {
	Questions  []string
	Hypothesis string
}

var seedConversations = []seedConversation{
	{
		Questions: []string{
			"What messages did Alex send on the 14th?",
			"Show me the network of connections between the suspects",
		},
	},
	{
		Questions: []string{
			"Where was Sam on the night of the 14th?",
			"Give me a timeline of events after the meeting",
		},
		Hypothesis: "Alex met Sam at the marina to hand over the drive",
	},
	{
		Hypothesis: "Sam never paid Jordan Reyes for the package",
	},
}

// seeder replays scripted conversations against the sample case and
// writes the resulting messages to the store.
type seeder struct {
	store   svc.SessionStore
	backend *demo.Backend
	rules   *actions.Dispatcher
	clock   time.Time
}

func newSeeder(store svc.SessionStore, backend *demo.Backend, start time.Time) *seeder {
	return &seeder{
		store:   store,
		backend: backend,
		rules:   actions.NewDispatcher(nil),
		clock:   start,
	}
}

func (s *seeder) seed(ctx context.Context, caseID string, conv seedConversation) (*models.Session, error) {
	sess, err := s.store.CreateSession(ctx, &svc.CreateSessionRequest{
		CaseID:         caseID,
		HypothesisMode: len(conv.Questions) == 0,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	for _, q := range conv.Questions {
		resp, err := s.backend.Ask(ctx, &svc.AskRequest{Query: q, CaseID: demo.CaseID})
		if err != nil {
			return nil, fmt.Errorf("answer %q: %w", q, err)
		}
		reply := s.message(models.RoleAssistant, models.MessageKindQuery, resp.Summary)
		reply.EvidenceIDs = models.EvidenceIDs(resp.Evidence)
		reply.Actions = s.rules.Derive(q, resp.Evidence)
		reply.SuggestedFollowups = resp.SuggestedFollowups
		reply.Visualization = resp.EmbeddedComponent
		reply.ResultsCount = resp.ResultsCount
		confidence := resp.Confidence
		reply.Confidence = &confidence

		if err := s.append(ctx, sess.ID, s.message(models.RoleUser, models.MessageKindQuery, q), reply); err != nil {
			return nil, err
		}
	}

	if conv.Hypothesis != "" {
		result, err := s.backend.TestHypothesis(ctx, &svc.HypothesisRequest{CaseID: demo.CaseID, Hypothesis: conv.Hypothesis})
		if err != nil {
			return nil, fmt.Errorf("test hypothesis: %w", err)
		}
		reply := s.message(models.RoleAssistant, models.MessageKindHypothesis, conversation.FormatVerdict(result))
		reply.Hypothesis = result
		reply.EvidenceIDs = models.EvidenceIDs(result.SupportingEvidence)
		confidence := result.Confidence
		reply.Confidence = &confidence

		user := s.message(models.RoleUser, models.MessageKindHypothesis, conversation.FrameHypothesis(conv.Hypothesis))
		if err := s.append(ctx, sess.ID, user, reply); err != nil {
			return nil, err
		}
	}

	return s.store.GetSession(ctx, sess.ID)
}

func (s *seeder) append(ctx context.Context, sessionID string, msgs ...models.Message) error {
	for i := range msgs {
		if err := s.store.AppendMessage(ctx, sessionID, &msgs[i]); err != nil {
			return fmt.Errorf("append message: %w", err)
		}
	}
	return nil
}

func (s *seeder) message(role models.Role, kind models.MessageKind, content string) models.Message {
	s.clock = s.clock.Add(40 * time.Second)
	return models.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Kind:      kind,
		Content:   content,
		CreatedAt: s.clock,
	}
}
