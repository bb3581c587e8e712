package entity

// StorageFile 存储后端枚举出来的文件描述, URI 始终为逻辑地址(webdav://, webdavs://, file://)
type StorageFile struct {
	Name        string
	Size        int64
	ContentHash *string //远端文件无法廉价获取hash, 为nil
	URI         string
}

type GameItem struct {
	Id            uint64 `json:"id"`
	GameId        uint64 `json:"game_id"`
	ProviderId    string `json:"provider_id"`
	FileName      string `json:"file_name"`
	FileUri       string `json:"file_uri"`
	FileSize      int64  `json:"file_size"`
	Crc           string `json:"crc"`
	Title         string `json:"title"`
	SystemId      string `json:"system_id"`
	LastIndexedAt int64  `json:"last_indexed_at"`
	LastPlayedAt  int64  `json:"last_played_at"`
	IsFavorite    int32  `json:"is_favorite"`
	Ctime         int64  `json:"ctime"`
	Mtime         int64  `json:"mtime"`
}

func (g *GameItem) Favorite() bool {
	return g.IsFavorite != 0
}

type UpsertGameRequest struct {
	ProviderId string
	File       *StorageFile
	Title      string
	SystemId   string
	IndexedAt  int64
}

type UpsertGameResponse struct {
	GameId  uint64
	Created bool
}

type GetGameRequest struct {
	GameIds []uint64
}

type GetGameResponse struct {
	List []*GameItem
}

type GetGameByUriRequest struct {
	FileUri string
}

type GetGameByUriResponse struct {
	Item  *GameItem
	Exist bool
}

type DeleteStaleGameRequest struct {
	ProviderId string
	Before     int64
}

type DeleteStaleGameResponse struct {
	GameIds []uint64
}

type MarkGamePlayedRequest struct {
	GameId   uint64
	PlayedAt int64
}

type MarkGamePlayedResponse struct {
}

type SetGameFavoriteRequest struct {
	GameId   uint64
	Favorite bool
}

type SetGameFavoriteResponse struct {
}

type ListGameRequest struct {
	Offset       int64
	Limit        int64
	SystemId     string
	ProviderId   string
	Keyword      string
	FavoriteOnly bool
}

type ListGameResponse struct {
	List []*GameItem
}
