package utils

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// EncodeGameId 对外暴露的游戏id, 使用16位hex避免前端处理uint64时丢失精度
func EncodeGameId(gameid uint64) string {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, gameid)
	return hex.EncodeToString(buf)
}

func DecodeGameId(xid string) (uint64, error) {
	raw, err := hex.DecodeString(xid)
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("invalid game id length:%d", len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

func KeyHash(key string) uint64 {
	return xxhash.Sum64String(key)
}

// KeyHashHex 返回key的xxhash的hex形式, 固定16个字符
func KeyHashHex(key string) string {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, KeyHash(key))
	return hex.EncodeToString(buf)
}
