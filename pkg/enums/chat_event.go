package enums

// ChatEventKind is the discriminant carried by every realtime frame.
type ChatEventKind string

const (
	ChatEventMessage     ChatEventKind = "message"
	ChatEventTyping      ChatEventKind = "typing_status"
	ChatEventPresence    ChatEventKind = "presence"
	ChatEventOrderStatus ChatEventKind = "order_status_update"
)

func (k ChatEventKind) IsValid() bool {
	switch k {
	case ChatEventMessage, ChatEventTyping, ChatEventPresence, ChatEventOrderStatus:
		return true
	}
	return false
}
