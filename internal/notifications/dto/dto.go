package dto

import (
	"loot-tracker/internal/notifications/models"
	"loot-tracker/pkg/middleware"
)

// ListNotificationsInput represents the input for listing the caller's notifications
type ListNotificationsInput struct {
	middleware.AuthHeaders
	UnreadOnly bool `query:"unread_only" doc:"Only unread notifications"`
	Page       int  `query:"page" minimum:"1" default:"1" doc:"Page number"`
	Limit      int  `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Items per page"`
}

// UnreadCountInput represents the input for the unread badge
type UnreadCountInput struct {
	middleware.AuthHeaders
}

// MarkReadInput represents the input for marking a notification read
type MarkReadInput struct {
	middleware.AuthHeaders
	NotificationID string `path:"notification_id" doc:"Notification id"`
}

// MarkAllReadInput represents the input for marking every notification read
type MarkAllReadInput struct {
	middleware.AuthHeaders
}

// ListNotificationsOutput is a page of notifications
type ListNotificationsOutput struct {
	Body struct {
		Notifications []models.Notification `json:"notifications"`
		Total         int64                 `json:"total"`
		UnreadCount   int64                 `json:"unread_count"`
		Page          int                   `json:"page"`
		Limit         int                   `json:"limit"`
	}
}

// UnreadCountOutput carries the unread badge count
type UnreadCountOutput struct {
	Body struct {
		Count int64 `json:"count"`
	}
}

// NotificationOutput wraps one notification
type NotificationOutput struct {
	Body models.Notification
}

// MarkAllReadOutput reports how many notifications changed
type MarkAllReadOutput struct {
	Body struct {
		Updated int64 `json:"updated"`
	}
}
