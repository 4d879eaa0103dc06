package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"simon-says-server/logger"
	"simon-says-server/models"
	"simon-says-server/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxRequestMessage = 200

type FriendService struct {
	DB  *gorm.DB
	log *logger.Logger
}

func NewFriendService(db *gorm.DB, log *logger.Logger) *FriendService {
	return &FriendService{DB: db, log: log.With("service", "FriendService")}
}

// FriendView is one entry of a friend list, always describing the other party.
type FriendView struct {
	ID           string               `json:"_id"`
	UserID       string               `json:"userId"`
	Username     string               `json:"username"`
	Profile      models.PublicProfile `json:"profile"`
	FriendshipID string               `json:"friendshipId"`
	Since        time.Time            `json:"since"`
}

// RequestView is a friend request with the counterparty attached on the
// side that is not the caller.
type RequestView struct {
	ID             string              `json:"_id"`
	Requester      *models.PublicUser  `json:"requester,omitempty"`
	Recipient      *models.PublicUser  `json:"recipient,omitempty"`
	Status         models.FriendStatus `json:"status"`
	RequestMessage string              `json:"requestMessage"`
	CreatedAt      time.Time           `json:"createdAt"`
}

type FriendshipView struct {
	ID     string            `json:"_id"`
	Friend models.PublicUser `json:"friend"`
	Since  time.Time         `json:"since"`
}

type Relationship struct {
	AreFriends      bool    `json:"areFriends"`
	PendingRequest  bool    `json:"pendingRequest"`
	RequestSentByMe bool    `json:"requestSentByMe"`
	RequestSentToMe bool    `json:"requestSentToMe"`
	RequestID       *string `json:"requestId"`
}

type UserLookup struct {
	User         models.PublicUser `json:"user"`
	Relationship Relationship      `json:"relationship"`
}

type Invite struct {
	InviteLink string `json:"inviteLink"`
	UserID     string `json:"userId"`
	Username   string `json:"username"`
}

// conflictMessage explains why a pair that already has a record cannot get another.
func conflictMessage(status models.FriendStatus) string {
	switch status {
	case models.FriendStatusAccepted:
		return "You are already friends with this user"
	case models.FriendStatusBlocked:
		return "Unable to send friend request"
	case models.FriendStatusDeclined:
		return "Friend request was previously declined"
	default:
		return "Friend request already exists"
	}
}

// CreateRequest opens a pending request from requesterID to the user owning
// recipientPublicID.
func (s *FriendService) CreateRequest(ctx context.Context, requesterID, recipientPublicID, message string) (*RequestView, error) {
	recipientPublicID = strings.TrimSpace(recipientPublicID)
	if recipientPublicID == "" {
		return nil, InvalidOperation("User ID is required")
	}
	if !utils.IsPublicID(recipientPublicID) {
		return nil, NotFound("User not found")
	}
	message = strings.TrimSpace(message)
	if len([]rune(message)) > maxRequestMessage {
		return nil, InvalidOperation("Request message cannot exceed 200 characters")
	}

	db := s.DB.WithContext(ctx)

	var recipient models.User
	if err := db.Where("user_id = ?", recipientPublicID).First(&recipient).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("User not found")
		}
		return nil, fmt.Errorf("find recipient: %w", err)
	}
	if recipient.ID == requesterID {
		return nil, InvalidOperation("You cannot send a friend request to yourself")
	}

	existing, err := s.findBetween(db, requesterID, recipient.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, Conflict(conflictMessage(existing.Status))
	}

	req := models.Friend{
		ID:             uuid.NewString(),
		RequesterID:    requesterID,
		RecipientID:    recipient.ID,
		Status:         models.FriendStatusPending,
		RequestMessage: message,
	}
	if err := db.Create(&req).Error; err != nil {
		// Lost a race with a concurrent request for the same pair.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, Conflict(conflictMessage(models.FriendStatusPending))
		}
		return nil, fmt.Errorf("create friend request: %w", err)
	}

	s.log.Info("friend request created", "request_id", req.ID, "requester", requesterID, "recipient", recipient.ID)

	pub := recipient.Public()
	return &RequestView{
		ID:             req.ID,
		Recipient:      &pub,
		Status:         req.Status,
		RequestMessage: req.RequestMessage,
		CreatedAt:      req.CreatedAt,
	}, nil
}

// AcceptRequest moves a pending request addressed to actingID to accepted.
func (s *FriendService) AcceptRequest(ctx context.Context, actingID, requestID string) (*FriendshipView, error) {
	req, err := s.transition(ctx, actingID, requestID, models.FriendStatusAccepted, "You can only accept requests sent to you")
	if err != nil {
		return nil, err
	}

	var requester models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", req.RequesterID).First(&requester).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("User not found")
		}
		return nil, fmt.Errorf("load requester: %w", err)
	}

	return &FriendshipView{
		ID:     req.ID,
		Friend: requester.Public(),
		Since:  req.UpdatedAt,
	}, nil
}

// DeclineRequest moves a pending request addressed to actingID to declined.
func (s *FriendService) DeclineRequest(ctx context.Context, actingID, requestID string) error {
	_, err := s.transition(ctx, actingID, requestID, models.FriendStatusDeclined, "You can only decline requests sent to you")
	return err
}

func (s *FriendService) transition(ctx context.Context, actingID, requestID string, to models.FriendStatus, forbidden string) (*models.Friend, error) {
	db := s.DB.WithContext(ctx)

	var req models.Friend
	if err := db.Where("id = ?", requestID).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("Friend request not found")
		}
		return nil, fmt.Errorf("find friend request: %w", err)
	}
	if req.RecipientID != actingID {
		return nil, Forbidden(forbidden)
	}
	if req.Status != models.FriendStatusPending {
		return nil, InvalidOperation("Friend request is no longer pending")
	}

	// Conditional on the status still being pending so two concurrent
	// transitions cannot both win.
	res := db.Model(&req).
		Where("status = ?", models.FriendStatusPending).
		Update("status", to)
	if res.Error != nil {
		return nil, fmt.Errorf("update friend request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, InvalidOperation("Friend request is no longer pending")
	}
	req.Status = to

	s.log.Info("friend request updated", "request_id", req.ID, "status", to)
	return &req, nil
}

// RemoveFriendship hard-deletes a relationship either side owns, whatever its status.
func (s *FriendService) RemoveFriendship(ctx context.Context, actingID, friendshipID string) error {
	db := s.DB.WithContext(ctx)

	var f models.Friend
	if err := db.Where("id = ?", friendshipID).First(&f).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFound("Friendship not found")
		}
		return fmt.Errorf("find friendship: %w", err)
	}
	if !f.Involves(actingID) {
		return Forbidden("You can only remove your own friendships")
	}
	if err := db.Delete(&f).Error; err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}

	s.log.Info("friendship removed", "friendship_id", f.ID, "by", actingID)
	return nil
}

// ListFriends returns every accepted relationship of userID, described from
// userID's point of view.
func (s *FriendService) ListFriends(ctx context.Context, userID string) ([]FriendView, error) {
	var rows []models.Friend
	err := s.DB.WithContext(ctx).
		Where("(requester_id = ? OR recipient_id = ?) AND status = ?", userID, userID, models.FriendStatusAccepted).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for i := range rows {
		ids = append(ids, otherParty(&rows[i], userID))
	}
	users, err := usersByID(s.DB.WithContext(ctx), ids)
	if err != nil {
		return nil, err
	}

	out := make([]FriendView, 0, len(rows))
	for i := range rows {
		u, ok := users[otherParty(&rows[i], userID)]
		if !ok {
			continue
		}
		pub := u.Public()
		out = append(out, FriendView{
			ID:           pub.ID,
			UserID:       pub.UserID,
			Username:     pub.Username,
			Profile:      pub.Profile,
			FriendshipID: rows[i].ID,
			Since:        rows[i].UpdatedAt,
		})
	}
	return out, nil
}

// ListPending returns pending requests addressed to userID.
func (s *FriendService) ListPending(ctx context.Context, userID string) ([]RequestView, error) {
	return s.listRequests(ctx, "recipient_id = ?", userID)
}

// ListSent returns pending requests userID has sent.
func (s *FriendService) ListSent(ctx context.Context, userID string) ([]RequestView, error) {
	return s.listRequests(ctx, "requester_id = ?", userID)
}

func (s *FriendService) listRequests(ctx context.Context, side, userID string) ([]RequestView, error) {
	var rows []models.Friend
	err := s.DB.WithContext(ctx).
		Where(side, userID).
		Where("status = ?", models.FriendStatusPending).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for i := range rows {
		ids = append(ids, otherParty(&rows[i], userID))
	}
	users, err := usersByID(s.DB.WithContext(ctx), ids)
	if err != nil {
		return nil, err
	}

	out := make([]RequestView, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		u, ok := users[otherParty(r, userID)]
		if !ok {
			continue
		}
		pub := u.Public()
		v := RequestView{
			ID:             r.ID,
			Status:         r.Status,
			RequestMessage: r.RequestMessage,
			CreatedAt:      r.CreatedAt,
		}
		if r.RecipientID == userID {
			v.Requester = &pub
		} else {
			v.Recipient = &pub
		}
		out = append(out, v)
	}
	return out, nil
}

// LookupByPublicID resolves a public id and summarizes how userID relates to it.
func (s *FriendService) LookupByPublicID(ctx context.Context, userID, publicID string) (*UserLookup, error) {
	if !utils.IsPublicID(publicID) {
		return nil, NotFound("User not found")
	}
	db := s.DB.WithContext(ctx)

	var target models.User
	if err := db.Where("user_id = ?", publicID).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("User not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	lookup := &UserLookup{User: target.Public()}
	if target.ID == userID {
		return lookup, nil
	}

	f, err := s.findBetween(db, userID, target.ID)
	if err != nil {
		return nil, err
	}
	if f != nil {
		lookup.Relationship = relationshipOf(f, userID)
	}
	return lookup, nil
}

func relationshipOf(f *models.Friend, selfID string) Relationship {
	var r Relationship
	switch f.Status {
	case models.FriendStatusAccepted:
		r.AreFriends = true
	case models.FriendStatusPending:
		id := f.ID
		r.PendingRequest = true
		r.RequestSentByMe = f.RequesterID == selfID
		r.RequestSentToMe = f.RecipientID == selfID
		r.RequestID = &id
	}
	return r
}

// InviteLink builds the shareable add-friend URL for userID.
func (s *FriendService) InviteLink(ctx context.Context, userID, clientURL string) (*Invite, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("User not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &Invite{
		InviteLink: strings.TrimRight(clientURL, "/") + "/add-friend/" + u.UserID,
		UserID:     u.UserID,
		Username:   u.Username,
	}, nil
}

// FriendIDs returns the ids of everyone with an accepted relationship to userID.
func (s *FriendService) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	var rows []models.Friend
	err := s.DB.WithContext(ctx).
		Select("requester_id", "recipient_id").
		Where("(requester_id = ? OR recipient_id = ?) AND status = ?", userID, userID, models.FriendStatusAccepted).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list friend ids: %w", err)
	}
	ids := make([]string, 0, len(rows))
	for i := range rows {
		ids = append(ids, otherParty(&rows[i], userID))
	}
	return ids, nil
}

// findBetween returns the relationship for the unordered pair, if any.
func (s *FriendService) findBetween(db *gorm.DB, a, b string) (*models.Friend, error) {
	var f models.Friend
	err := db.Where("(requester_id = ? AND recipient_id = ?) OR (requester_id = ? AND recipient_id = ?)", a, b, b, a).
		First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find relationship: %w", err)
	}
	return &f, nil
}

// otherParty is the single place that decides which side of a relationship
// the caller is looking at.
func otherParty(f *models.Friend, selfID string) string {
	return f.OtherParty(selfID)
}

func usersByID(db *gorm.DB, ids []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}
