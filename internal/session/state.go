package session

// Состояния контроллера сессии. Единственный допустимый цикл:
// Anonymous -> Joining -> Active -> Leaving -> Anonymous.
type State int

const (
	StateAnonymous State = iota
	StateJoining
	StateActive
	StateLeaving
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateLeaving:
		return "leaving"
	default:
		return "unknown"
	}
}

type UpdateKind int

const (
	UpdateState    UpdateKind = iota // смена состояния сессии
	UpdateMessages                   // изменился список сообщений
	UpdateMembers                    // изменился список участников или typing-набор
)

// Update — сигнал наблюдателю перечитать срез состояния через геттеры контроллера.
type Update struct {
	Kind UpdateKind
}
