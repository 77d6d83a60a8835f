package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
)

const maxRayDistance = 512

// ChunkSummary - краткое состояние активного чанка
type ChunkSummary struct {
	X            int    `json:"x"`
	Y            int    `json:"y"`
	State        string `json:"state"`
	MeshDirty    bool   `json:"mesh_dirty"`
	NeedsPersist bool   `json:"needs_persist"`
}

// ChunkDetails - подробности о чанке
type ChunkDetails struct {
	ChunkSummary
	Epoch  uint64          `json:"epoch"`
	Links  map[string]bool `json:"links"`
	Blocks map[string]int  `json:"blocks"`
}

// BlockView - содержимое ячейки мира
type BlockView struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Z        int    `json:"z"`
	ID       uint8  `json:"id"`
	Name     string `json:"name"`
	Opaque   bool   `json:"opaque"`
	Emission uint8  `json:"emission"`
	Indoor   uint8  `json:"indoor_light"`
	Outdoor  uint8  `json:"outdoor_light"`
	Sky      bool   `json:"sky"`
}

// SetBlockRequest - запрос на изменение блока
type SetBlockRequest struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
	Block string `json:"block" binding:"required"`
	Place bool   `json:"place"` // ставить только в воздух
}

// RaycastRequest - запрос на бросок луча
type RaycastRequest struct {
	Origin      [3]float64 `json:"origin"`
	Direction   [3]float64 `json:"direction"`
	MaxDistance float64    `json:"max_distance" binding:"required,gt=0"`
}

// RaycastResponse - результат луча
type RaycastResponse struct {
	Hit      bool       `json:"hit"`
	Distance float64    `json:"distance,omitempty"`
	Normal   [3]float64 `json:"normal,omitempty"`
	Block    *BlockView `json:"block,omitempty"`
}

func summarize(c *world.Chunk) ChunkSummary {
	return ChunkSummary{
		X:            c.Coords.X,
		Y:            c.Coords.Y,
		State:        c.State().String(),
		MeshDirty:    c.MeshDirty(),
		NeedsPersist: c.NeedsPersist(),
	}
}

func viewOf(reg *block.Registry, cur world.Cursor) BlockView {
	cell := cur.Cell()
	def := reg.Get(cell.Type)
	pos := cur.WorldPos()
	return BlockView{
		X:        pos.X,
		Y:        pos.Y,
		Z:        pos.Z,
		ID:       uint8(def.ID),
		Name:     def.Name,
		Opaque:   def.Opaque,
		Emission: def.Emission,
		Indoor:   cell.Indoor(),
		Outdoor:  cell.Outdoor(),
		Sky:      cell.IsSky(),
	}
}

func intParams(c *gin.Context, names ...string) ([]int, bool) {
	out := make([]int, len(names))
	for i, name := range names {
		v, err := strconv.Atoi(c.Param(name))
		if err != nil {
			respondError(c, http.StatusBadRequest, "Некорректный параметр "+name)
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// handleHealth проверка состояния сервера
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleStats возвращает статистику мира и процесса
func (s *Server) handleStats(c *gin.Context) {
	var ws world.Stats
	if !s.inWorld(c, func(w *world.World) { ws = w.Stats() }) {
		return
	}

	cpuPercent, err := s.metrics.CPUPercent()
	if err != nil {
		s.log.Debug("CPU процесса недоступен: %v", err)
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data: gin.H{
			"world": ws,
			"server": gin.H{
				"uptime":      s.metrics.Uptime(),
				"memory_mb":   s.metrics.MemoryMB(),
				"cpu_percent": cpuPercent,
				"server_time": time.Now().Unix(),
			},
			"memory_details": s.metrics.MemoryDetails(),
		},
	})
}

// handleServerInfo возвращает параметры мира и нагрузку системы
func (s *Server) handleServerInfo(c *gin.Context) {
	var cfg world.Config
	if !s.inWorld(c, func(w *world.World) { cfg = w.Config() }) {
		return
	}
	systemCPU, _ := s.metrics.SystemCPUPercent(200 * time.Millisecond)

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Информация о сервере",
		Data: gin.H{
			"name":                "voxeld",
			"seed":                cfg.Seed,
			"activation_radius":   cfg.ActivationRadius,
			"deactivation_radius": cfg.DeactivationRadius,
			"max_active_chunks":   cfg.MaxActiveChunks,
			"uptime":              s.metrics.Uptime(),
			"system_cpu":          systemCPU,
		},
	})
}

// handleBlockTypes возвращает таблицу типов блоков
func (s *Server) handleBlockTypes(c *gin.Context) {
	var defs []block.Definition
	if !s.inWorld(c, func(w *world.World) {
		reg := w.Registry()
		defs = make([]block.Definition, 0, reg.Len())
		for i := 0; i < reg.Len(); i++ {
			defs = append(defs, *reg.Get(block.BlockID(i)))
		}
	}) {
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Типы блоков", Data: defs})
}

// handleChunks возвращает список активных чанков
func (s *Server) handleChunks(c *gin.Context) {
	var chunks []ChunkSummary
	if !s.inWorld(c, func(w *world.World) {
		coords := w.ActiveCoords()
		chunks = make([]ChunkSummary, 0, len(coords))
		for _, cc := range coords {
			chunks = append(chunks, summarize(w.ChunkAt(cc)))
		}
	}) {
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Активные чанки", Data: chunks})
}

// handleChunk возвращает подробности об активном чанке
func (s *Server) handleChunk(c *gin.Context) {
	p, ok := intParams(c, "x", "y")
	if !ok {
		return
	}

	var details *ChunkDetails
	if !s.inWorld(c, func(w *world.World) {
		ch := w.ChunkAt(vec.Vec2{X: p[0], Y: p[1]})
		if ch == nil {
			return
		}
		reg := w.Registry()
		d := &ChunkDetails{
			ChunkSummary: summarize(ch),
			Epoch:        ch.Epoch(),
			Links:        make(map[string]bool, len(world.Directions)),
			Blocks:       make(map[string]int),
		}
		for _, dir := range world.Directions {
			d.Links[dir.String()] = ch.IsLinked(dir)
		}
		for id, n := range ch.TypeCounts() {
			if n > 0 {
				d.Blocks[reg.Get(block.BlockID(id)).Name] = n
			}
		}
		details = d
	}) {
		return
	}
	if details == nil {
		respondError(c, http.StatusNotFound, "Чанк не активен")
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Чанк", Data: details})
}

// handleGetBlock возвращает ячейку по мировым координатам
func (s *Server) handleGetBlock(c *gin.Context) {
	p, ok := intParams(c, "x", "y", "z")
	if !ok {
		return
	}

	var view *BlockView
	if !s.inWorld(c, func(w *world.World) {
		cur := w.CursorAt(p[0], p[1], p[2])
		if !cur.IsValid() {
			return
		}
		v := viewOf(w.Registry(), cur)
		view = &v
	}) {
		return
	}
	if view == nil {
		respondError(c, http.StatusNotFound, "Ячейка вне активных чанков")
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блок", Data: view})
}

// handleSetBlock ставит или заменяет блок
func (s *Server) handleSetBlock(c *gin.Context) {
	var req SetBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	var (
		known, loaded, changed bool
		view                   BlockView
	)
	if !s.inWorld(c, func(w *world.World) {
		def, ok := w.Registry().Lookup(req.Block)
		if !ok {
			return
		}
		known = true
		cur := w.CursorAt(req.X, req.Y, req.Z)
		if !cur.IsValid() {
			return
		}
		loaded = true
		changed = w.SetBlockType(req.X, req.Y, req.Z, def.ID, req.Place)
		view = viewOf(w.Registry(), cur)
	}) {
		return
	}

	switch {
	case !known:
		respondError(c, http.StatusBadRequest, "Неизвестный тип блока "+req.Block)
	case !loaded:
		respondError(c, http.StatusNotFound, "Ячейка вне активных чанков")
	case !changed:
		c.JSON(http.StatusConflict, GenericResponse{Success: false, Message: "Блок не изменён", Data: view})
	default:
		s.log.Info("Блок (%d,%d,%d) -> %s", req.X, req.Y, req.Z, req.Block)
		c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блок изменён", Data: view})
	}
}

// handleRaycast бросает луч в мир
func (s *Server) handleRaycast(c *gin.Context) {
	var req RaycastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	if req.MaxDistance > maxRayDistance {
		req.MaxDistance = maxRayDistance
	}

	var resp RaycastResponse
	if !s.inWorld(c, func(w *world.World) {
		hit := w.Raycast(mgl64.Vec3(req.Origin), mgl64.Vec3(req.Direction), req.MaxDistance)
		if !hit.Hit {
			return
		}
		view := viewOf(w.Registry(), hit.Cursor)
		resp = RaycastResponse{
			Hit:      true,
			Distance: hit.Distance,
			Normal:   [3]float64(hit.Normal),
			Block:    &view,
		}
	}) {
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Луч", Data: resp})
}
