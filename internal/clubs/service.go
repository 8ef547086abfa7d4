package clubs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clubhouse/backend/internal/models"
	"github.com/clubhouse/backend/pkg/queue"
)

// Notifier receives membership notifications after a change commits.
type Notifier interface {
	EnqueueNotification(ctx context.Context, n queue.Notification) error
}

// Service enforces club membership rules before delegating to the repository.
// It holds no state of its own.
type Service struct {
	repo     Repository
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a club service. notifier may be nil.
func NewService(repo Repository, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, notifier: notifier, logger: logger, now: time.Now}
}

// CreateClub creates a club owned by ownerID, who becomes its first JOINED member.
func (s *Service) CreateClub(ctx context.Context, ownerID int64, payload CreateClubPayload) (ClubDto, error) {
	exists, err := s.repo.ClubNameExists(ctx, payload.Name)
	if err != nil {
		return ClubDto{}, fmt.Errorf("check club name: %w", err)
	}
	if exists {
		return ClubDto{}, conflict("a club with the same name already exists")
	}

	club, err := s.repo.CreateClub(ctx, CreateClubData{
		OwnerID:     ownerID,
		Name:        payload.Name,
		Description: payload.Description,
		MaxCapacity: payload.MaxCapacity,
	})
	if err != nil {
		return ClubDto{}, fmt.Errorf("create club: %w", err)
	}
	s.logger.Info("club created", zap.Int64("club_id", club.ID), zap.Int64("owner_id", ownerID))
	return clubDtoFrom(club), nil
}

// JoinClub files a PENDING join request for userID.
func (s *Service) JoinClub(ctx context.Context, clubID, userID int64) error {
	club, err := s.getClub(ctx, clubID)
	if err != nil {
		return err
	}

	state, err := s.repo.GetJoinState(ctx, clubID, userID)
	if err != nil {
		return fmt.Errorf("get join state: %w", err)
	}
	switch state {
	case models.JoinStatePending:
		return conflict("already requested to join this club; wait for the owner to respond")
	case models.JoinStateJoined:
		return conflict("already a member of this club")
	}

	joined, err := s.repo.CountJoinedUsers(ctx, clubID)
	if err != nil {
		return fmt.Errorf("count joined users: %w", err)
	}
	if joined >= club.MaxCapacity {
		return conflict("club is full")
	}

	applied, err := s.repo.JoinClub(ctx, clubID, userID)
	if err != nil {
		return fmt.Errorf("join club: %w", err)
	}
	if !applied {
		return conflict("club is full")
	}

	s.logger.Info("club join requested", zap.Int64("club_id", clubID), zap.Int64("user_id", userID))
	s.notify(ctx, queue.Notification{
		Type:        queue.NotificationJoinRequested,
		ClubID:      club.ID,
		ClubName:    club.Name,
		RecipientID: club.OwnerID,
		ActorID:     userID,
	})
	return nil
}

// OutClub cancels a pending request or leaves the club. The owner must
// delegate ownership first.
func (s *Service) OutClub(ctx context.Context, clubID, userID int64) error {
	club, err := s.getClub(ctx, clubID)
	if err != nil {
		return err
	}

	state, err := s.repo.GetJoinState(ctx, clubID, userID)
	if err != nil {
		return fmt.Errorf("get join state: %w", err)
	}
	if state == "" {
		return conflict("never requested to join this club")
	}
	if club.OwnerID == userID {
		return conflict("the owner must delegate ownership before leaving the club")
	}

	if err := s.repo.OutClub(ctx, clubID, userID, s.now()); err != nil {
		return fmt.Errorf("out club: %w", err)
	}
	s.logger.Info("club member left",
		zap.Int64("club_id", clubID),
		zap.Int64("user_id", userID),
		zap.String("previous_state", string(state)),
	)
	return nil
}

// GetClubByID returns a single club.
func (s *Service) GetClubByID(ctx context.Context, clubID int64) (ClubDto, error) {
	club, err := s.getClub(ctx, clubID)
	if err != nil {
		return ClubDto{}, err
	}
	return clubDtoFrom(club), nil
}

// GetClubs lists all clubs.
func (s *Service) GetClubs(ctx context.Context) (ClubListDto, error) {
	list, err := s.repo.GetClubs(ctx)
	if err != nil {
		return ClubListDto{}, fmt.Errorf("get clubs: %w", err)
	}
	return clubListDtoFrom(list), nil
}

// GetMyClubs lists clubs in which userID is a JOINED member.
func (s *Service) GetMyClubs(ctx context.Context, userID int64) (ClubListDto, error) {
	list, err := s.repo.GetMyClubs(ctx, userID)
	if err != nil {
		return ClubListDto{}, fmt.Errorf("get my clubs: %w", err)
	}
	return clubListDtoFrom(list), nil
}

// UpdateClub applies the supplied fields. Only the owner may update.
func (s *Service) UpdateClub(ctx context.Context, clubID int64, payload UpdateClubPayload, actorID int64) (ClubDto, error) {
	club, err := s.getClub(ctx, clubID)
	if err != nil {
		return ClubDto{}, err
	}
	if club.OwnerID != actorID {
		return ClubDto{}, forbidden("only the club owner can update the club")
	}

	if payload.Name.IsNull() {
		return ClubDto{}, badRequest("club name cannot be null")
	}
	if payload.Description.IsNull() {
		return ClubDto{}, badRequest("club description cannot be null")
	}
	if payload.MaxCapacity.IsNull() {
		return ClubDto{}, badRequest("club max capacity cannot be null")
	}

	var data UpdateClubData
	if payload.MaxCapacity.IsSpecified() {
		maxCapacity := payload.MaxCapacity.MustGet()
		joined, err := s.repo.CountJoinedUsers(ctx, clubID)
		if err != nil {
			return ClubDto{}, fmt.Errorf("count joined users: %w", err)
		}
		if maxCapacity < joined {
			return ClubDto{}, conflict("max capacity cannot be lower than the current member count")
		}
		data.MaxCapacity = &maxCapacity
	}
	if payload.Name.IsSpecified() {
		name := payload.Name.MustGet()
		if name != club.Name {
			exists, err := s.repo.ClubNameExists(ctx, name)
			if err != nil {
				return ClubDto{}, fmt.Errorf("check club name: %w", err)
			}
			if exists {
				return ClubDto{}, conflict("a club with the same name already exists")
			}
		}
		data.Name = &name
	}
	if payload.Description.IsSpecified() {
		description := payload.Description.MustGet()
		data.Description = &description
	}

	updated, err := s.repo.UpdateClub(ctx, clubID, data)
	if err != nil {
		return ClubDto{}, fmt.Errorf("update club: %w", err)
	}
	if updated == nil {
		return ClubDto{}, conflict("max capacity cannot be lower than the current member count")
	}
	s.logger.Info("club updated", zap.Int64("club_id", clubID))
	return clubDtoFrom(updated), nil
}

// DeleteClub removes the club. Started events are archived, upcoming ones deleted.
func (s *Service) DeleteClub(ctx context.Context, clubID, actorID int64) error {
	club, err := s.getClub(ctx, clubID)
	if err != nil {
		return err
	}
	if club.OwnerID != actorID {
		return forbidden("only the club owner can delete the club")
	}

	members, err := s.repo.GetClubMemberIDs(ctx, clubID)
	if err != nil {
		return fmt.Errorf("get club members: %w", err)
	}
	if err := s.repo.DeleteClub(ctx, clubID, s.now()); err != nil {
		return fmt.Errorf("delete club: %w", err)
	}

	s.logger.Info("club deleted", zap.Int64("club_id", clubID), zap.Int("members", len(members)))
	for _, memberID := range members {
		if memberID == actorID {
			continue
		}
		s.notify(ctx, queue.Notification{
			Type:        queue.NotificationClubDeleted,
			ClubID:      club.ID,
			ClubName:    club.Name,
			RecipientID: memberID,
			ActorID:     actorID,
		})
	}
	return nil
}

// Delegate hands ownership to another JOINED member. The previous owner
// stays a JOINED member.
func (s *Service) Delegate(ctx context.Context, clubID, actorID int64, payload DelegatePayload) (ClubDto, error) {
	club, err := s.getClub(ctx, clubID)
	if err != nil {
		return ClubDto{}, err
	}
	if club.OwnerID != actorID {
		return ClubDto{}, forbidden("only the club owner can delegate ownership")
	}
	if payload.UserID == club.OwnerID {
		return ClubDto{}, conflict("user is already the club owner")
	}

	state, err := s.repo.GetJoinState(ctx, clubID, payload.UserID)
	if err != nil {
		return ClubDto{}, fmt.Errorf("get join state: %w", err)
	}
	if state != models.JoinStateJoined {
		return ClubDto{}, conflict("ownership can only be delegated to a club member")
	}

	applied, err := s.repo.UpdateOwner(ctx, clubID, payload.UserID)
	if err != nil {
		return ClubDto{}, fmt.Errorf("update owner: %w", err)
	}
	if !applied {
		return ClubDto{}, conflict("ownership can only be delegated to a club member")
	}
	club.OwnerID = payload.UserID

	s.logger.Info("club ownership delegated",
		zap.Int64("club_id", clubID),
		zap.Int64("from", actorID),
		zap.Int64("to", payload.UserID),
	)
	s.notify(ctx, queue.Notification{
		Type:        queue.NotificationDelegated,
		ClubID:      club.ID,
		ClubName:    club.Name,
		RecipientID: payload.UserID,
		ActorID:     actorID,
	})
	return clubDtoFrom(club), nil
}

// Approve accepts a pending join request. Approval is capacity-bounded.
func (s *Service) Approve(ctx context.Context, clubID, actorID int64, payload ApprovePayload) error {
	club, err := s.getClub(ctx, clubID)
	if err != nil {
		return err
	}
	if club.OwnerID != actorID {
		return forbidden("only the club owner can approve join requests")
	}

	state, err := s.repo.GetJoinState(ctx, clubID, payload.UserID)
	if err != nil {
		return fmt.Errorf("get join state: %w", err)
	}
	switch state {
	case models.JoinStateJoined:
		return conflict("user is already a member of this club")
	case "":
		return conflict("user never requested to join this club")
	}

	joined, err := s.repo.CountJoinedUsers(ctx, clubID)
	if err != nil {
		return fmt.Errorf("count joined users: %w", err)
	}
	if joined >= club.MaxCapacity {
		return conflict("club is full")
	}

	applied, err := s.repo.ApproveJoin(ctx, clubID, payload.UserID)
	if err != nil {
		if errors.Is(err, ErrNoPendingRequest) {
			return conflict("user never requested to join this club")
		}
		return fmt.Errorf("approve join: %w", err)
	}
	if !applied {
		return conflict("club is full")
	}

	s.logger.Info("club join approved", zap.Int64("club_id", clubID), zap.Int64("user_id", payload.UserID))
	s.notify(ctx, queue.Notification{
		Type:        queue.NotificationJoinApproved,
		ClubID:      club.ID,
		ClubName:    club.Name,
		RecipientID: payload.UserID,
		ActorID:     actorID,
	})
	return nil
}

// GetJoinRequests lists pending requests. Only the owner may see them.
func (s *Service) GetJoinRequests(ctx context.Context, clubID, actorID int64) (JoinRequestListDto, error) {
	club, err := s.getClub(ctx, clubID)
	if err != nil {
		return JoinRequestListDto{}, err
	}
	if club.OwnerID != actorID {
		return JoinRequestListDto{}, forbidden("only the club owner can view join requests")
	}
	list, err := s.repo.GetJoinRequests(ctx, clubID)
	if err != nil {
		return JoinRequestListDto{}, fmt.Errorf("get join requests: %w", err)
	}
	return JoinRequestListDto{Requests: list}, nil
}

func (s *Service) getClub(ctx context.Context, clubID int64) (*models.Club, error) {
	club, err := s.repo.GetClubByID(ctx, clubID)
	if err != nil {
		return nil, fmt.Errorf("get club: %w", err)
	}
	if club == nil {
		return nil, notFound("club not found")
	}
	return club, nil
}

// notify publishes n. Failures are logged and never fail the request.
func (s *Service) notify(ctx context.Context, n queue.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.EnqueueNotification(ctx, n); err != nil {
		s.logger.Warn("enqueue notification failed",
			zap.Error(err),
			zap.String("type", string(n.Type)),
			zap.Int64("club_id", n.ClubID),
			zap.Int64("recipient_id", n.RecipientID),
		)
	}
}
