package realtime

import "context"

// Handler вызывается на каждое событие подписки. Вызовы последовательны
// в рамках одной подписки.
type Handler func(Event)

// Subscription — отменяемая подписка. Unsubscribe идемпотентен и обязан
// вызываться при смене комнаты или завершении сессии, иначе утекает
// слушатель со ссылкой на старую комнату.
//
// Done закрывается, когда подписка перестала доставлять события; Err после
// этого возвращает причину. nil — штатный Unsubscribe, не-nil — лента
// умерла сама (обрыв соединения, рестарт базы), и владелец обязан
// переподписаться или свернуть сессию: молча живой подписки больше нет.
type Subscription interface {
	Unsubscribe()
	Done() <-chan struct{}
	Err() error
}

// Listener выдаёт подписку на события комнаты. Пустой roomID — все комнаты
// (используется relay-мостом).
type Listener interface {
	Subscribe(ctx context.Context, roomID string, h Handler) (Subscription, error)
}
