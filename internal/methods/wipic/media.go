package wipic

import (
	"github.com/mirusu400/wie/internal/cbridge"
	"github.com/mirusu400/wie/internal/core"
	"github.com/mirusu400/wie/internal/marshal"
)

func init() {
	register(buildMediaTable)
}

// buildMediaTable mirrors the WIPI media (MC_mda*) method table. Clip
// lifecycle operations (create/play/pause/...) are implemented against an
// in-memory clip registry; the data-path ordinals (put/get clip data,
// tone data, watermarking) are not backed by an actual audio pipeline and
// report unimplemented, same as the platform reference did for everything
// beyond the basic playback state machine.
func buildMediaTable(ctx *cbridge.Context) Table {
	clips := newClipRegistry()

	names := make([]string, 0, 27)
	hooks := make([]func(*core.Core), 0, 27)
	add := func(name string, hook func(*core.Core)) {
		names = append(names, name)
		hooks = append(hooks, hook)
	}

	add("MC_mdaClipCreate", marshal.Adapt3(func(_ *core.Core, clipType, bufSize, callback uint32) uint32 {
		return clips.create(clipType, bufSize, callback)
	}, marshal.Word, marshal.Word, marshal.Word))

	add("MC_mdaClipFree", nil)
	add("MC_mdaSetWaterMark", nil)

	add("MC_mdaClipGetType", marshal.Adapt1(func(_ *core.Core, clip uint32) uint32 {
		return clips.get(clip).clipType
	}, marshal.Word))

	add("MC_mdaClipPutData", nil)
	add("MC_mdaClipPutDataByFile", nil)
	add("MC_mdaClipPutToneData", nil)
	add("MC_mdaClipPutFreqToneData", nil)
	add("MC_mdaClipGetData", nil)
	add("MC_mdaClipAvailableDataSize", nil)
	add("MC_mdaClipClearData", nil)

	add("MC_mdaClipSetPosition", marshal.Adapt2(func(_ *core.Core, clip, ms uint32) uint32 {
		clips.get(clip).positionMS = ms
		return 0
	}, marshal.Word, marshal.Word))

	add("MC_mdaClipGetVolume", nil)
	add("MC_mdaClipSetVolume", nil)

	add("MC_mdaPlay", marshal.Adapt2(func(_ *core.Core, clip, repeat uint32) uint32 {
		clips.get(clip).playing = true
		clips.get(clip).repeat = repeat
		return 0
	}, marshal.Word, marshal.Word))

	add("MC_mdaPause", marshal.Adapt1(func(_ *core.Core, clip uint32) uint32 {
		clips.get(clip).playing = false
		return 0
	}, marshal.Word))

	add("MC_mdaResume", marshal.Adapt1(func(_ *core.Core, clip uint32) uint32 {
		clips.get(clip).playing = true
		return 0
	}, marshal.Word))

	add("MC_mdaStop", marshal.Adapt1(func(_ *core.Core, clip uint32) uint32 {
		c := clips.get(clip)
		c.playing = false
		c.positionMS = 0
		return 0
	}, marshal.Word))

	add("MC_mdaRecord", nil)

	add("MC_mdaGetVolume", nil)
	add("MC_mdaSetVolume", nil)
	add("MC_mdaVibrator", nil)
	add("MC_mdaReserved1", nil)
	add("MC_mdaReserved2", nil)
	add("MC_mdaSetMuteState", nil)

	add("MC_mdaGetMuteState", marshal.Adapt1(func(_ *core.Core, _ uint32) uint32 {
		return 0
	}, marshal.Word))

	add("OEMC_mdaClipGetInfo", marshal.Adapt1(func(_ *core.Core, _ uint32) uint32 {
		return 0
	}, marshal.Word))

	return Table{Category: "media", Names: names, Hooks: hooks}
}

type clip struct {
	clipType   uint32
	bufSize    uint32
	callback   uint32
	playing    bool
	repeat     uint32
	positionMS uint32
}

type clipRegistry struct {
	clips  map[uint32]*clip
	nextID uint32
}

func newClipRegistry() *clipRegistry {
	return &clipRegistry{clips: make(map[uint32]*clip), nextID: 1}
}

func (r *clipRegistry) create(clipType, bufSize, callback uint32) uint32 {
	id := r.nextID
	r.nextID++
	r.clips[id] = &clip{clipType: clipType, bufSize: bufSize, callback: callback}
	return id
}

func (r *clipRegistry) get(id uint32) *clip {
	c, ok := r.clips[id]
	if !ok {
		c = &clip{}
		r.clips[id] = c
	}
	return c
}
