package model

type GameInfo struct {
	GameId       string `json:"game_id"`
	ProviderId   string `json:"provider_id"`
	FileName     string `json:"file_name"`
	FileSize     int64  `json:"file_size"`
	Crc          string `json:"crc"`
	Title        string `json:"title"`
	SystemId     string `json:"system_id"`
	LastPlayedAt int64  `json:"last_played_at"`
	IsFavorite   bool   `json:"is_favorite"`
	Ctime        int64  `json:"ctime"`
	Mtime        int64  `json:"mtime"`
}

type ListGameRequest struct {
	Offset       int64  `form:"offset" json:"offset"`
	Limit        int64  `form:"limit" json:"limit"`
	SystemId     string `form:"system_id" json:"system_id"`
	ProviderId   string `form:"provider_id" json:"provider_id"`
	Keyword      string `form:"keyword" json:"keyword"`
	FavoriteOnly bool   `form:"favorite_only" json:"favorite_only"`
}

type ListGameResponse struct {
	List []*GameInfo `json:"list"`
}

type GetGameInfoResponse struct {
	Item *GameInfo `json:"item"`
}

type RefreshResultItem struct {
	Provider string `json:"provider"`
	Listed   int    `json:"listed"`
	Indexed  int    `json:"indexed"`
	Skipped  int    `json:"skipped"`
	Removed  int    `json:"removed"`
	Cost     int64  `json:"cost"` //毫秒
	Error    string `json:"error,omitempty"`
}

type RefreshResponse struct {
	List []*RefreshResultItem `json:"list"`
}

type SetFavoriteRequest struct {
	GameId   string `json:"game_id" binding:"required"`
	Favorite bool   `json:"favorite"`
}

type SetFavoriteResponse struct {
}

type SetSaveResponse struct {
	Size int64 `json:"size"`
}

type SystemItem struct {
	Id   string   `json:"id"`
	Name string   `json:"name"`
	Exts []string `json:"exts"`
}

type ListSystemResponse struct {
	List []*SystemItem `json:"list"`
}
