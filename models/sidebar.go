package models

// SidebarUser, kenar çubuğunda listelenen tek bir kişi.
// Relation, görüntüleyenin bu kişiye uyguladığı bayraklardır.
type SidebarUser struct {
	User
	Online   bool          `json:"online"`
	Unseen   int           `json:"unseen"`
	Relation RelationFlags `json:"relation"`
}

// Sidebar, GET /api/messages/users yanıtı.
//
// UnseenMessages sadece sıfırdan büyük sayaçları içerir (peerID → count).
type Sidebar struct {
	Users          []SidebarUser  `json:"users"`
	UnseenMessages map[string]int `json:"unseenMessages"`
}
