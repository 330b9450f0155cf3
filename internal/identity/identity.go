package identity

import "context"

// User - действующий клиницист: непрозрачный идентификатор, токен
// для обращений к бэкенду и контактный канал для экстренной связи
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Token string `json:"-"`
	Phone string `json:"phone,omitempty"`
}

// Provider отдает текущего пользователя. Сам процесс аутентификации -
// забота внешнего провайдера, здесь только read-only контекст
type Provider interface {
	CurrentUser(ctx context.Context) (*User, error)
}

// StaticProvider - провайдер с фиксированным пользователем из
// конфигурации. Достаточно для gateway, работающего от имени
// одного дежурного врача
type StaticProvider struct {
	user *User
}

// NewStaticProvider создает провайдера. Пустой id означает
// отсутствие пользователя
func NewStaticProvider(user User) *StaticProvider {
	if user.ID == "" {
		return &StaticProvider{}
	}
	return &StaticProvider{user: &user}
}

// CurrentUser возвращает сконфигурированного пользователя или nil
func (p *StaticProvider) CurrentUser(ctx context.Context) (*User, error) {
	if p.user == nil {
		return nil, nil
	}
	user := *p.user
	return &user, nil
}
