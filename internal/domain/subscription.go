package domain

import (
	"time"
)

// Subscription единственная запись подписки. Строка никогда не удаляется,
// при отмене или истечении поля очищаются на месте.
type Subscription struct {
	Active               bool       `json:"active"`
	SubscriptionDuration *string    `json:"subscription_duration"`
	DateOfSubscription   *time.Time `json:"date_of_subscription"`
	DateOfExpiration     *time.Time `json:"date_of_expiration"`
	Cost                 *float64   `json:"cost"`
	Note                 *string    `json:"note"`
}

// EmptySubscription возвращает пустую запись: active=false, все поля nil
func EmptySubscription() Subscription {
	return Subscription{}
}

// IsLive сообщает, действует ли подписка в момент now.
// Флаг active без даты истечения или с прошедшей датой не считается.
func (s Subscription) IsLive(now time.Time) bool {
	return s.Active && s.DateOfExpiration != nil && now.Before(*s.DateOfExpiration)
}

// IsStale true, если запись помечена активной, но срок уже вышел
func (s Subscription) IsStale(now time.Time) bool {
	return s.Active && !s.IsLive(now)
}

// IsEmpty true для очищенной записи
func (s Subscription) IsEmpty() bool {
	return !s.Active &&
		s.SubscriptionDuration == nil &&
		s.DateOfSubscription == nil &&
		s.DateOfExpiration == nil &&
		s.Cost == nil &&
		s.Note == nil
}

// ExpirationUnix ключ для защиты от повторного истечения; 0 если даты нет
func (s Subscription) ExpirationUnix() int64 {
	if s.DateOfExpiration == nil {
		return 0
	}
	return s.DateOfExpiration.UnixNano()
}

// SubscriptionRequest тело POST запроса на создание подписки
type SubscriptionRequest struct {
	SubscriptionDuration int         `json:"subscription_duration" validate:"required,gt=0"`
	DurationType         string      `json:"duration_type" validate:"required"`
	Cost                 interface{} `json:"cost"`
	Note                 *string     `json:"note,omitempty" validate:"omitempty,max=500"`
	Overwrite            bool        `json:"overwrite,omitempty"`
}

// NewSubscription параметры записи, подготовленной сервисом к сохранению
type NewSubscription struct {
	Duration           string
	DateOfSubscription time.Time
	DateOfExpiration   time.Time
	Cost               float64
	Note               *string
}

// Record превращает параметры в активную запись
func (n NewSubscription) Record() Subscription {
	label := n.Duration
	start := n.DateOfSubscription
	expires := n.DateOfExpiration
	cost := n.Cost
	return Subscription{
		Active:               true,
		SubscriptionDuration: &label,
		DateOfSubscription:   &start,
		DateOfExpiration:     &expires,
		Cost:                 &cost,
		Note:                 n.Note,
	}
}
