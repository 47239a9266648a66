package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/textroom/internal/domain"
	"github.com/cwrk-planet/textroom/internal/realtime"
)

const (
	defaultHeartbeatEvery   = 30 * time.Second
	defaultTypingClearAfter = 1500 * time.Millisecond

	// timeout для best-effort фоновых вызовов (typing, heartbeat, offline)
	bgOpTimeout = 5 * time.Second
)

type Options struct {
	HeartbeatEvery   time.Duration
	TypingClearAfter time.Duration
}

// Controller владеет согласованным локальным срезом состояния комнаты:
// текущие room/user, сообщения, участники, typing-набор. Все мутации идут либо
// от прямых действий пользователя, либо из колбэков ленты изменений; каждый
// асинхронный результат перед применением сверяет epoch сессии (stale-response guard).
type Controller struct {
	roomSvc   RoomDirectory
	memberSvc MemberTracker
	chatSvc   MessageLog
	listener  realtime.Listener
	ident     IdentityStore

	heartbeatEvery   time.Duration
	typingClearAfter time.Duration

	updates chan Update

	mu       sync.Mutex
	state    State
	epoch    uint64 // инкремент на каждый join и leave; устаревшие колбэки отбрасываются
	room     *domain.Room
	user     domain.User
	messages []domain.Message
	members  []domain.Member
	pending  []realtime.Event // события, пришедшие до применения снапшота
	resync   bool             // идёт восстановление ленты: события копятся в pending
	sub      realtime.Subscription
	hbStop   chan struct{}

	typing      bool
	typingTimer *time.Timer // schedule-or-replace: не более одного отложенного сброса

	closed bool
}

func NewController(
	roomSvc RoomDirectory,
	memberSvc MemberTracker,
	chatSvc MessageLog,
	listener realtime.Listener,
	ident IdentityStore,
	opts Options,
) *Controller {
	if opts.HeartbeatEvery <= 0 {
		opts.HeartbeatEvery = defaultHeartbeatEvery
	}
	if opts.TypingClearAfter <= 0 {
		opts.TypingClearAfter = defaultTypingClearAfter
	}
	return &Controller{
		roomSvc:          roomSvc,
		memberSvc:        memberSvc,
		chatSvc:          chatSvc,
		listener:         listener,
		ident:            ident,
		heartbeatEvery:   opts.HeartbeatEvery,
		typingClearAfter: opts.TypingClearAfter,
		updates:          make(chan Update, 32),
	}
}

// Updates — единственный канал уведомлений для наблюдателей. Отправка
// неблокирующая: при переполненном буфере сигнал теряется, наблюдатель
// в любом случае перечитывает состояние целиком.
func (c *Controller) Updates() <-chan Update { return c.updates }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Room() *domain.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room == nil {
		return nil
	}
	rm := *c.room
	return &rm
}

func (c *Controller) CurrentUser() domain.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *Controller) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Controller) Members() []domain.Member {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Member, len(c.members))
	copy(out, c.members)
	return out
}

// TypingNames — имена набирающих текст участников, кроме самого пользователя.
func (c *Controller) TypingNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var names []string
	for _, m := range c.members {
		if m.IsTyping && m.UserID != c.user.ID {
			names = append(names, m.DisplayName)
		}
	}
	return names
}

// CreateRoom создаёт комнату и входит в неё. Разрешено только из Anonymous.
func (c *Controller) CreateRoom(ctx context.Context, name, displayName string) (*domain.Room, error) {
	epoch, err := c.beginJoin()
	if err != nil {
		return nil, err
	}

	room, err := c.roomSvc.CreateRoom(ctx, name)
	if err != nil {
		c.failJoin(epoch)
		return nil, err
	}

	if err := c.establish(ctx, epoch, room, displayName); err != nil {
		c.failJoin(epoch)
		return nil, err
	}
	return room, nil
}

// JoinRoom входит в комнату по коду. Разрешено только из Anonymous.
func (c *Controller) JoinRoom(ctx context.Context, code, displayName string) (*domain.Room, error) {
	epoch, err := c.beginJoin()
	if err != nil {
		return nil, err
	}

	room, err := c.roomSvc.FindRoomByCode(ctx, code)
	if err != nil {
		c.failJoin(epoch)
		return nil, err
	}

	if err := c.establish(ctx, epoch, room, displayName); err != nil {
		c.failJoin(epoch)
		return nil, err
	}
	return room, nil
}

// Resume восстанавливает сохранённую сессию после рестарта процесса.
// Возвращает (nil, nil), если сессии нет. Если комната исчезла,
// сохранённая сессия стирается.
func (c *Controller) Resume(ctx context.Context) (*domain.Room, error) {
	saved, user, err := c.ident.LoadSession()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if saved == nil || user == nil {
		return nil, nil
	}

	epoch, err := c.beginJoin()
	if err != nil {
		return nil, err
	}

	room, err := c.roomSvc.FindRoomByCode(ctx, saved.Code)
	if err != nil {
		c.failJoin(epoch)
		if errors.Is(err, domain.ErrRoomNotFound) {
			if cerr := c.ident.ClearSession(); cerr != nil {
				slog.Warn("clear stale session failed", "err", cerr)
			}
		}
		return nil, err
	}

	if err := c.establish(ctx, epoch, room, user.DisplayName); err != nil {
		c.failJoin(epoch)
		return nil, err
	}
	return room, nil
}

// LeaveRoom — явный выход: offline на бекенде best-effort, локальный teardown
// и стирание сохранённой сессии выполняются безусловно.
func (c *Controller) LeaveRoom(ctx context.Context) error {
	room, user, err := c.beginTeardown()
	if err != nil {
		return err
	}

	if err := c.memberSvc.SetOnline(ctx, room.ID, user.ID, false); err != nil {
		slog.Warn("mark offline failed", "room", room.ID, "user", user.ID, "err", err)
	}
	if err := c.ident.ClearSession(); err != nil {
		slog.Warn("clear session failed", "err", err)
	}

	c.finishTeardown()
	return nil
}

// Close — presence-on-exit: участник помечается offline, подписки и таймеры
// освобождаются, но сохранённая сессия НЕ стирается — рестарт должен её
// восстановить. Ошибки проглатываются, восстановления на этом этапе нет.
func (c *Controller) Close() {
	room, user, err := c.beginTeardown()
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), bgOpTimeout)
		if oerr := c.memberSvc.SetOnline(ctx, room.ID, user.ID, false); oerr != nil {
			slog.Debug("offline on exit failed", "room", room.ID, "err", oerr)
		}
		cancel()
		c.finishTeardown()
	}

	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.updates)
	}
	c.mu.Unlock()
}

// SendMessage отправляет текст в текущую комнату. Пустой после trim текст — no-op.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return domain.ErrNoActiveSession
	}
	epoch, room, user := c.epoch, c.room, c.user
	c.mu.Unlock()

	msg, err := c.chatSvc.Send(ctx, room.ID, user.ID, user.DisplayName, text)
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}

	// отправка завершает набор текста
	go c.clearTyping(epoch)

	// локальное эхо; дубликат из ленты отсеется по id
	c.mu.Lock()
	changed := false
	if c.epoch == epoch && c.state == StateActive {
		changed = c.insertMessageLocked(*msg)
	}
	c.mu.Unlock()
	if changed {
		c.emit(UpdateMessages)
	}
	return nil
}

// DeleteMessage удаляет собственное сообщение. Чужое или чужой комнаты —
// domain.ErrMessageDeleteFailed, сообщение остаётся.
func (c *Controller) DeleteMessage(ctx context.Context, msgID string) error {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return domain.ErrNoActiveSession
	}
	epoch, room, user := c.epoch, c.room, c.user
	c.mu.Unlock()

	if err := c.chatSvc.Delete(ctx, msgID, room.ID, user.ID); err != nil {
		return err
	}

	c.mu.Lock()
	changed := false
	if c.epoch == epoch && c.state == StateActive {
		changed = c.removeMessageLocked(msgID)
	}
	c.mu.Unlock()
	if changed {
		c.emit(UpdateMessages)
	}
	return nil
}

// TypingKeystroke вызывается на каждое нажатие. Первое после паузы выставляет
// is_typing на бекенде; каждое следующее заменяет отложенный сброс новым,
// так что сброс срабатывает через typingClearAfter после ПОСЛЕДНЕГО нажатия.
func (c *Controller) TypingKeystroke() {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}
	epoch, room, user := c.epoch, c.room, c.user
	first := !c.typing
	c.typing = true
	if c.typingTimer != nil {
		c.typingTimer.Stop()
	}
	c.typingTimer = time.AfterFunc(c.typingClearAfter, func() { c.clearTyping(epoch) })
	c.mu.Unlock()

	if first {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), bgOpTimeout)
			defer cancel()
			if err := c.memberSvc.SetTyping(ctx, room.ID, user.ID, true); err != nil {
				slog.Debug("set typing failed", "room", room.ID, "err", err)
			}
		}()
	}
}

// --- внутреннее ---

func (c *Controller) beginJoin() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return 0, domain.ErrNoActiveSession
	case c.state == StateJoining, c.state == StateLeaving:
		return 0, domain.ErrJoinInProgress
	case c.state == StateActive:
		return 0, domain.ErrSessionActive
	}
	c.epoch++
	c.state = StateJoining
	c.pending = nil
	c.emitLocked(UpdateState)
	return c.epoch, nil
}

func (c *Controller) failJoin(epoch uint64) {
	c.mu.Lock()
	if c.epoch == epoch && c.state == StateJoining {
		c.state = StateAnonymous
		c.pending = nil
		c.emitLocked(UpdateState)
	}
	c.mu.Unlock()
}

// establish: membership -> подписка -> снапшот -> активация.
// Подписка оформляется ДО снапшота; события, успевшие прийти раньше,
// копятся в pending и применяются после него (snapshot-then-delta без дыр).
func (c *Controller) establish(ctx context.Context, epoch uint64, room *domain.Room, displayName string) error {
	userID, err := c.ident.GetOrCreateUserID()
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}

	member, err := c.memberSvc.Join(ctx, room.ID, userID, displayName)
	if err != nil {
		return err
	}
	user := domain.User{ID: userID, DisplayName: member.DisplayName}

	sub, err := c.listener.Subscribe(ctx, room.ID, func(ev realtime.Event) {
		c.handleEvent(epoch, ev)
	})
	if err != nil {
		c.bestEffortOffline(room.ID, userID)
		return fmt.Errorf("subscribe: %w", err)
	}

	history, err := c.chatSvc.History(ctx, room.ID)
	if err != nil {
		sub.Unsubscribe()
		c.bestEffortOffline(room.ID, userID)
		return fmt.Errorf("load history: %w", err)
	}
	members, err := c.memberSvc.ListActiveMembers(ctx, room.ID)
	if err != nil {
		sub.Unsubscribe()
		c.bestEffortOffline(room.ID, userID)
		return fmt.Errorf("list members: %w", err)
	}

	c.mu.Lock()
	if c.epoch != epoch || c.state != StateJoining || c.closed {
		c.mu.Unlock()
		sub.Unsubscribe()
		c.bestEffortOffline(room.ID, userID)
		return domain.ErrNoActiveSession
	}
	c.room = room
	c.user = user
	c.messages = history
	c.members = members
	refetch, fetchIDs := c.applyPendingLocked()
	c.sub = sub
	c.state = StateActive
	stop := make(chan struct{})
	c.hbStop = stop
	c.mu.Unlock()

	if err := c.ident.SaveSession(room, user); err != nil {
		slog.Warn("save session failed", "err", err)
	}

	go c.heartbeatLoop(room.ID, user.ID, stop)
	go c.watchFeed(epoch, sub, room.ID)
	if refetch {
		go c.refetchMembers(epoch, room.ID)
	}
	for _, id := range fetchIDs {
		go c.fetchMessage(epoch, room.ID, id)
	}

	c.emit(UpdateState)
	c.emit(UpdateMessages)
	c.emit(UpdateMembers)
	return nil
}

// beginTeardown переводит Active -> Leaving, гасит таймеры и подписку,
// возвращает room/user для пометки offline.
func (c *Controller) beginTeardown() (*domain.Room, domain.User, error) {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return nil, domain.User{}, domain.ErrNoActiveSession
	}
	c.state = StateLeaving
	c.epoch++ // все in-flight результаты устаревают
	room, user := c.room, c.user
	sub, stop, timer := c.sub, c.hbStop, c.typingTimer
	c.sub = nil
	c.hbStop = nil
	c.typingTimer = nil
	c.typing = false
	c.resync = false
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if stop != nil {
		close(stop)
	}
	if sub != nil {
		sub.Unsubscribe()
	}
	return room, user, nil
}

func (c *Controller) finishTeardown() {
	c.mu.Lock()
	c.state = StateAnonymous
	c.room = nil
	c.user = domain.User{}
	c.messages = nil
	c.members = nil
	c.pending = nil
	c.mu.Unlock()
	c.emit(UpdateState)
}

func (c *Controller) bestEffortOffline(roomID, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), bgOpTimeout)
	defer cancel()
	if err := c.memberSvc.SetOnline(ctx, roomID, userID, false); err != nil {
		slog.Debug("rollback offline failed", "room", roomID, "err", err)
	}
}

func (c *Controller) handleEvent(epoch uint64, ev realtime.Event) {
	c.mu.Lock()
	if c.epoch != epoch || c.closed {
		c.mu.Unlock()
		return
	}
	if c.state == StateJoining || c.resync {
		c.pending = append(c.pending, ev)
		c.mu.Unlock()
		return
	}
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}
	changed, refetch, fetchID := c.applyEventLocked(ev)
	var roomID string
	if c.room != nil {
		roomID = c.room.ID
	}
	c.mu.Unlock()

	if changed {
		c.emit(UpdateMessages)
	}
	if refetch {
		go c.refetchMembers(epoch, roomID)
	}
	if fetchID != "" {
		go c.fetchMessage(epoch, roomID, fetchID)
	}
}

// applyEventLocked применяет одно событие к локальному срезу.
// Изменения участников не патчатся инкрементально — список перечитывается
// целиком (refetch=true), это убирает гонки частичных обновлений.
// Вставка без тела (строка не влезла в NOTIFY) возвращает fetchID:
// сообщение нужно дочитать из базы отдельным запросом.
func (c *Controller) applyEventLocked(ev realtime.Event) (changed, refetch bool, fetchID string) {
	switch ev.Table {
	case realtime.TableMessages:
		switch ev.Op {
		case realtime.OpInsert:
			if ev.Message != nil {
				changed = c.insertMessageLocked(*ev.Message)
			} else if ev.MessageID != "" {
				fetchID = ev.MessageID
			}
		case realtime.OpDelete:
			changed = c.removeMessageLocked(ev.MessageID)
		}
	case realtime.TableMembers:
		refetch = true
	}
	return changed, refetch, fetchID
}

func (c *Controller) applyPendingLocked() (refetch bool, fetchIDs []string) {
	for _, ev := range c.pending {
		_, rf, fid := c.applyEventLocked(ev)
		refetch = refetch || rf
		if fid != "" {
			fetchIDs = append(fetchIDs, fid)
		}
	}
	c.pending = nil
	return refetch, fetchIDs
}

// fetchMessage дочитывает сообщение, пришедшее в ленте одним id.
// Исчезнувшее к этому моменту сообщение (успели удалить) не ошибка.
func (c *Controller) fetchMessage(epoch uint64, roomID, id string) {
	ctx, cancel := context.WithTimeout(context.Background(), bgOpTimeout)
	defer cancel()

	msg, err := c.chatSvc.Get(ctx, id, roomID)
	if err != nil {
		if !errors.Is(err, domain.ErrMessageNotFound) {
			slog.Warn("fetch message failed", "room", roomID, "msg", id, "err", err)
		}
		return
	}

	c.mu.Lock()
	changed := false
	if c.epoch == epoch && c.state == StateActive {
		changed = c.insertMessageLocked(*msg)
	}
	c.mu.Unlock()
	if changed {
		c.emit(UpdateMessages)
	}
}

// watchFeed следит за жизнью подписки. Штатный Unsubscribe — тишина;
// обрыв ленты без переподписки означал бы вечно Active сессию с молча
// замороженным состоянием, поэтому здесь либо восстановление, либо
// сворачивание сессии.
func (c *Controller) watchFeed(epoch uint64, sub realtime.Subscription, roomID string) {
	<-sub.Done()
	if sub.Err() == nil {
		return
	}

	c.mu.Lock()
	if c.epoch != epoch || c.state != StateActive || c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	slog.Warn("event feed lost", "room", roomID, "err", sub.Err())
	if c.resubscribe(epoch, roomID) {
		return
	}
	c.dropSession(epoch, roomID)
}

// resubscribe восстанавливает ленту после обрыва: новая подписка, затем
// свежий снапшот истории и участников. На время восстановления события
// копятся в pending, как при установке сессии: снапшот и дельта не должны
// разойтись. false — восстановить не удалось.
func (c *Controller) resubscribe(epoch uint64, roomID string) bool {
	c.mu.Lock()
	if c.epoch != epoch || c.state != StateActive || c.closed {
		c.mu.Unlock()
		return true
	}
	c.resync = true
	c.pending = nil
	c.mu.Unlock()

	cancelResync := func() {
		c.mu.Lock()
		if c.epoch == epoch {
			c.resync = false
			c.pending = nil
		}
		c.mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), bgOpTimeout)
	defer cancel()

	sub, err := c.listener.Subscribe(ctx, roomID, func(ev realtime.Event) {
		c.handleEvent(epoch, ev)
	})
	if err != nil {
		slog.Warn("feed resubscribe failed", "room", roomID, "err", err)
		cancelResync()
		return false
	}

	history, err := c.chatSvc.History(ctx, roomID)
	if err != nil {
		sub.Unsubscribe()
		cancelResync()
		return false
	}
	members, err := c.memberSvc.ListActiveMembers(ctx, roomID)
	if err != nil {
		sub.Unsubscribe()
		cancelResync()
		return false
	}

	c.mu.Lock()
	if c.epoch != epoch || c.state != StateActive || c.closed {
		c.mu.Unlock()
		sub.Unsubscribe()
		return true
	}
	c.messages = history
	c.members = members
	refetch, fetchIDs := c.applyPendingLocked()
	c.sub = sub
	c.resync = false
	c.mu.Unlock()

	slog.Info("event feed restored", "room", roomID)
	go c.watchFeed(epoch, sub, roomID)
	if refetch {
		go c.refetchMembers(epoch, roomID)
	}
	for _, id := range fetchIDs {
		go c.fetchMessage(epoch, roomID, id)
	}
	c.emit(UpdateMessages)
	c.emit(UpdateMembers)
	return true
}

// dropSession сворачивает сессию после невосстановимой потери ленты.
// Сохранённая сессия не стирается: Resume поднимет её, когда бекенд оживёт.
func (c *Controller) dropSession(epoch uint64, roomID string) {
	c.mu.Lock()
	if c.epoch != epoch || c.state != StateActive {
		c.mu.Unlock()
		return
	}
	c.epoch++
	c.state = StateAnonymous
	stop, timer, sub := c.hbStop, c.typingTimer, c.sub
	c.room = nil
	c.user = domain.User{}
	c.messages = nil
	c.members = nil
	c.pending = nil
	c.resync = false
	c.sub = nil
	c.hbStop = nil
	c.typingTimer = nil
	c.typing = false
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if stop != nil {
		close(stop)
	}
	if sub != nil {
		sub.Unsubscribe()
	}
	slog.Warn("session dropped after feed loss", "room", roomID)
	c.emit(UpdateState)
}

// insertMessageLocked вставляет с дедупликацией по id, сохраняя порядок
// по (created_at, id) по возрастанию.
func (c *Controller) insertMessageLocked(m domain.Message) bool {
	for _, ex := range c.messages {
		if ex.ID == m.ID {
			return false
		}
	}
	i := len(c.messages)
	for i > 0 {
		prev := c.messages[i-1]
		if prev.CreatedAt.Before(m.CreatedAt) ||
			(prev.CreatedAt.Equal(m.CreatedAt) && prev.ID < m.ID) {
			break
		}
		i--
	}
	c.messages = append(c.messages, domain.Message{})
	copy(c.messages[i+1:], c.messages[i:])
	c.messages[i] = m
	return true
}

func (c *Controller) removeMessageLocked(id string) bool {
	for i, m := range c.messages {
		if m.ID == id {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Controller) refetchMembers(epoch uint64, roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), bgOpTimeout)
	defer cancel()

	list, err := c.memberSvc.ListActiveMembers(ctx, roomID)
	if err != nil {
		slog.Warn("refetch members failed", "room", roomID, "err", err)
		return
	}

	c.mu.Lock()
	if c.epoch != epoch || c.state != StateActive {
		c.mu.Unlock()
		return
	}
	c.members = list
	c.mu.Unlock()
	c.emit(UpdateMembers)
}

func (c *Controller) heartbeatLoop(roomID, userID string, stop <-chan struct{}) {
	ticker := time.NewTicker(c.heartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), bgOpTimeout)
			if err := c.memberSvc.Heartbeat(ctx, roomID, userID); err != nil {
				slog.Debug("heartbeat failed", "room", roomID, "err", err)
			}
			cancel()
		}
	}
}

func (c *Controller) clearTyping(epoch uint64) {
	c.mu.Lock()
	if c.epoch != epoch || !c.typing {
		c.mu.Unlock()
		return
	}
	c.typing = false
	if c.typingTimer != nil {
		c.typingTimer.Stop()
		c.typingTimer = nil
	}
	room, user := c.room, c.user
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), bgOpTimeout)
	defer cancel()
	if err := c.memberSvc.SetTyping(ctx, room.ID, user.ID, false); err != nil {
		slog.Debug("clear typing failed", "room", room.ID, "err", err)
	}
}

func (c *Controller) emit(k UpdateKind) {
	c.mu.Lock()
	c.emitLocked(k)
	c.mu.Unlock()
}

func (c *Controller) emitLocked(k UpdateKind) {
	if c.closed {
		return
	}
	select {
	case c.updates <- Update{Kind: k}:
	default:
	}
}
