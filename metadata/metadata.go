package metadata

import (
	"path"
	"regexp"
	"slices"
	"sort"
	"strings"
)

type System struct {
	ID         string
	Name       string
	Extensions []string
	OpenEmuID  string //OpenVGDB中SYSTEMS.systemOEID
}

var systems = []*System{
	{ID: "nes", Name: "Nintendo Entertainment System", Extensions: []string{"nes", "fds", "unf"}, OpenEmuID: "openemu.system.nes"},
	{ID: "snes", Name: "Super Nintendo", Extensions: []string{"sfc", "smc", "fig", "swc"}, OpenEmuID: "openemu.system.snes"},
	{ID: "n64", Name: "Nintendo 64", Extensions: []string{"n64", "z64", "v64"}, OpenEmuID: "openemu.system.n64"},
	{ID: "gb", Name: "Game Boy", Extensions: []string{"gb"}, OpenEmuID: "openemu.system.gb"},
	{ID: "gbc", Name: "Game Boy Color", Extensions: []string{"gbc"}, OpenEmuID: "openemu.system.gb"},
	{ID: "gba", Name: "Game Boy Advance", Extensions: []string{"gba"}, OpenEmuID: "openemu.system.gba"},
	{ID: "nds", Name: "Nintendo DS", Extensions: []string{"nds"}, OpenEmuID: "openemu.system.nds"},
	{ID: "md", Name: "Sega Genesis", Extensions: []string{"md", "gen", "smd"}, OpenEmuID: "openemu.system.sg"},
	{ID: "sms", Name: "Sega Master System", Extensions: []string{"sms"}, OpenEmuID: "openemu.system.sms"},
	{ID: "gg", Name: "Sega Game Gear", Extensions: []string{"gg"}, OpenEmuID: "openemu.system.gg"},
	{ID: "pce", Name: "PC Engine", Extensions: []string{"pce"}, OpenEmuID: "openemu.system.pce"},
	{ID: "psx", Name: "Sony PlayStation", Extensions: []string{"cue", "pbp", "chd"}, OpenEmuID: "openemu.system.psx"},
	{ID: "atari2600", Name: "Atari 2600", Extensions: []string{"a26"}, OpenEmuID: "openemu.system.2600"},
	{ID: "arcade", Name: "Arcade", Extensions: []string{"zip"}},
}

var (
	extToSystem = buildExtTable()
	tagCleaner  = regexp.MustCompile(`\s*[\(\[][^\)\]]*[\)\]]`)
)

func buildExtTable() map[string]*System {
	m := make(map[string]*System, 64)
	for _, s := range systems {
		for _, ext := range s.Extensions {
			m[ext] = s
		}
	}
	return m
}

// Guess 根据文件名推断标题及所属平台, 无法识别的后缀返回false
func Guess(fileName string) (string, string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	s, ok := extToSystem[ext]
	if !ok {
		return "", "", false
	}
	return CleanTitle(fileName), s.ID, true
}

// CleanTitle 去掉后缀以及 (USA) [!] 之类的dump标记
func CleanTitle(fileName string) string {
	base := strings.TrimSuffix(fileName, path.Ext(fileName))
	title := strings.TrimSpace(tagCleaner.ReplaceAllString(base, ""))
	if len(title) == 0 {
		return strings.TrimSpace(base)
	}
	return title
}

func FindSystem(id string) (*System, bool) {
	for _, s := range systems {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// MatchOpenEmuSystem 将OpenVGDB的系统标识映射为本地平台, 多个平台共用同一标识时(gb/gbc)按文件后缀挑选
func MatchOpenEmuSystem(oeid string, fileName string) (*System, bool) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	var first *System
	for _, s := range systems {
		if len(s.OpenEmuID) == 0 || s.OpenEmuID != oeid {
			continue
		}
		if slices.Contains(s.Extensions, ext) {
			return s, true
		}
		if first == nil {
			first = s
		}
	}
	return first, first != nil
}

func ListSystems() []string {
	rs := make([]string, 0, len(systems))
	for _, s := range systems {
		rs = append(rs, s.ID)
	}
	sort.Strings(rs)
	return rs
}
