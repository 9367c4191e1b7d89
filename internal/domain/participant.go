package domain

type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	RoomKey     string `json:"room_key"`
}
