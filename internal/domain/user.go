package domain

// User — локальная идентичность клиента. Не хранится на бекенде отдельной таблицей,
// живёт в member-строках и в локальном identity store.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}
