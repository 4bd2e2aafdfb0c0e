package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/geo"
	"github.com/lintang-b-s/mwmrouter/pkg/server/rest/service"
	"github.com/lintang-b-s/mwmrouter/pkg/worldgraph"
)

type NavigationService interface {
	BuildRoute(ctx context.Context, req service.RouteRequest) (*service.RouteResult, error)
	CancelRoute(handle string) error
}

type RegionService interface {
	Regions() []worldgraph.RegionStatus
	AddRegion(ctx context.Context, name string) (datastructure.RegionID, error)
	RemoveRegion(name string) error
}

type NavigationHandler struct {
	svc      NavigationService
	regions  RegionService
	validate *validator.Validate
	trans    ut.Translator
}

func NavigatorRouter(r *chi.Mux, svc NavigationService, regions RegionService) {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	validate := validator.New()
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	handler := &NavigationHandler{svc: svc, regions: regions, validate: validate, trans: trans}

	r.Group(func(r chi.Router) {
		r.Route("/api/navigations", func(r chi.Router) {
			r.Post("/route", handler.BuildRoute)
			r.Delete("/route/{handle}", handler.CancelRoute)
		})
		r.Route("/api/regions", func(r chi.Router) {
			r.Get("/", handler.Regions)
			r.Post("/{name}", handler.AddRegion)
			r.Delete("/{name}", handler.RemoveRegion)
		})
	})
}

// Coord model info
//
//	@Description	a WGS84 coordinate
type Coord struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// RouteOptionsRequest model info
//
//	@Description	recognized route options
type RouteOptionsRequest struct {
	AvoidTolls   bool   `json:"avoid_tolls"`
	AvoidFerries bool   `json:"avoid_ferries"`
	OptimizeFor  string `json:"optimize_for" validate:"omitempty,oneof=time distance"`
}

// RouteRequest model info
//
//	@Description	request body for a route between two points
type RouteRequest struct {
	Start      *Coord              `json:"start" validate:"required"`
	End        *Coord              `json:"end" validate:"required"`
	Vehicle    string              `json:"vehicle" validate:"required,oneof=car bicycle pedestrian transit"`
	Options    RouteOptionsRequest `json:"options"`
	RequestKey string              `json:"request_key" validate:"omitempty,max=128"`

	// Simplify drops path points closer than a few meters to the line
	// through their neighbours.
	Simplify bool `json:"simplify"`
}

func (s *RouteRequest) Bind(r *http.Request) error {
	if s.Start == nil || s.End == nil {
		return errors.New("start and end are required")
	}
	return nil
}

// RouteSegmentResponse model info
//
//	@Description	one segment of a route in travel order
type RouteSegmentResponse struct {
	Region   uint16  `json:"region"`
	EdgeID   uint32  `json:"edge_id"`
	Forward  bool    `json:"forward"`
	From     string  `json:"from"`
	To       string  `json:"to"`
	Length   float64 `json:"length"`
	Duration float64 `json:"duration"`
	Leap     bool    `json:"leap,omitempty"`
	Fake     bool    `json:"fake,omitempty"`
}

// WarningResponse model info
//
//	@Description	non fatal condition of a route
type WarningResponse struct {
	Kind    string `json:"kind"`
	Region  string `json:"region,omitempty"`
	Message string `json:"message"`
}

// RouteResponse model info
//
//	@Description	route between two points
type RouteResponse struct {
	Handle   string                 `json:"handle"`
	Cached   bool                   `json:"cached"`
	Path     string                 `json:"path"`
	Distance float64                `json:"distance"`
	Duration float64                `json:"duration"`
	Segments []RouteSegmentResponse `json:"segments"`
	Warnings []WarningResponse      `json:"warnings,omitempty"`
}

func RenderRouteResponse(res *service.RouteResult, simplify bool) *RouteResponse {
	route := res.Route
	path := route.Geometry()
	if simplify {
		path = geo.Simplify(path, geo.RouteSimplifyToleranceM)
	}
	segments := make([]RouteSegmentResponse, 0, len(route.Segments))
	for _, s := range route.Segments {
		segments = append(segments, RouteSegmentResponse{
			Region:   uint16(s.Segment.Region),
			EdgeID:   s.Segment.EdgeID,
			Forward:  s.Segment.Forward,
			From:     s.From.String(),
			To:       s.To.String(),
			Length:   s.Length,
			Duration: s.Duration,
			Leap:     s.Leap,
			Fake:     s.Segment.IsFake(),
		})
	}
	warnings := make([]WarningResponse, 0, len(route.Warnings))
	for _, w := range route.Warnings {
		warnings = append(warnings, WarningResponse{Kind: w.Kind.String(), Region: w.RegionName, Message: w.Message})
	}
	return &RouteResponse{
		Handle:   res.Handle,
		Cached:   res.Cached,
		Path:     datastructure.CreatePolyline(path),
		Distance: route.Distance,
		Duration: route.Duration,
		Segments: segments,
		Warnings: warnings,
	}
}

func (h *NavigationHandler) validateRequest(data interface{}) render.Renderer {
	if err := h.validate.Struct(data); err != nil {
		return ErrValidation(err, translateError(err, h.trans))
	}
	return nil
}

// BuildRoute
//
//	@Summary		route between two points
//	@Description	route between two points for a vehicle. A newer request with the same request_key cancels the older one.
//	@Tags			navigations
//	@Param			body	body	RouteRequest	true	"route request"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/navigations/route [post]
//	@Success		200	{object}	RouteResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		409	{object}	ErrResponse
//	@Failure		424	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *NavigationHandler) BuildRoute(w http.ResponseWriter, r *http.Request) {
	data := &RouteRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if rend := h.validateRequest(data); rend != nil {
		render.Render(w, r, rend)
		return
	}

	vehicleType, err := datastructure.ParseVehicleType(data.Vehicle)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	optimizeFor, err := datastructure.ParseOptimizeFor(data.Options.OptimizeFor)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	res, err := h.svc.BuildRoute(r.Context(), service.RouteRequest{
		Start:   datastructure.NewCoordinate(data.Start.Lat, data.Start.Lon),
		Finish:  datastructure.NewCoordinate(data.End.Lat, data.End.Lon),
		Vehicle: vehicleType,
		Options: datastructure.RouteOptions{
			AvoidTolls:   data.Options.AvoidTolls,
			AvoidFerries: data.Options.AvoidFerries,
			OptimizeFor:  optimizeFor,
		},
		RequestKey: data.RequestKey,
	})
	if err != nil {
		render.Render(w, r, ErrService(err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RenderRouteResponse(res, data.Simplify))
}

// CancelRoute
//
//	@Summary		cancel a running route request
//	@Tags			navigations
//	@Param			handle	path	string	true	"request key or handle of the route request"
//	@Router			/navigations/route/{handle} [delete]
//	@Success		204
//	@Failure		404	{object}	ErrResponse
func (h *NavigationHandler) CancelRoute(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CancelRoute(chi.URLParam(r, "handle")); err != nil {
		render.Render(w, r, ErrService(err))
		return
	}
	render.NoContent(w, r)
}

// BoundsResponse model info
//
//	@Description	bounding box of a region
type BoundsResponse struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// RegionResponse model info
//
//	@Description	registered region
type RegionResponse struct {
	ID       uint16         `json:"id"`
	Name     string         `json:"name"`
	Bounds   BoundsResponse `json:"bounds"`
	OnDisk   bool           `json:"on_disk"`
	Resident bool           `json:"resident"`
	Removed  bool           `json:"removed,omitempty"`
}

func RenderRegionResponse(s worldgraph.RegionStatus) RegionResponse {
	return RegionResponse{
		ID:   uint16(s.ID),
		Name: s.Name,
		Bounds: BoundsResponse{
			MinLat: s.Bounds.MinLat,
			MinLon: s.Bounds.MinLon,
			MaxLat: s.Bounds.MaxLat,
			MaxLon: s.Bounds.MaxLon,
		},
		OnDisk:   s.OnDisk,
		Resident: s.Resident,
		Removed:  s.Removed,
	}
}

// Regions
//
//	@Summary	registered regions
//	@Tags		regions
//	@Produce	application/json
//	@Router		/regions [get]
//	@Success	200	{array}	RegionResponse
func (h *NavigationHandler) Regions(w http.ResponseWriter, r *http.Request) {
	rows := h.regions.Regions()
	resp := make([]RegionResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, RenderRegionResponse(row))
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// AddRegion
//
//	@Summary		register a downloaded region
//	@Description	register a region whose file is on disk, or refresh it after a new download
//	@Tags			regions
//	@Param			name	path	string	true	"region name"
//	@Produce		application/json
//	@Router			/regions/{name} [post]
//	@Success		201	{object}	RegionResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *NavigationHandler) AddRegion(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	id, err := h.regions.AddRegion(r.Context(), name)
	if err != nil {
		render.Render(w, r, ErrService(err))
		return
	}
	for _, row := range h.regions.Regions() {
		if row.ID == id {
			render.Status(r, http.StatusCreated)
			render.JSON(w, r, RenderRegionResponse(row))
			return
		}
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, RegionResponse{ID: uint16(id), Name: name, OnDisk: true})
}

// RemoveRegion
//
//	@Summary	remove a region
//	@Tags		regions
//	@Param		name	path	string	true	"region name"
//	@Router		/regions/{name} [delete]
//	@Success	204
//	@Failure	404	{object}	ErrResponse
func (h *NavigationHandler) RemoveRegion(w http.ResponseWriter, r *http.Request) {
	if err := h.regions.RemoveRegion(chi.URLParam(r, "name")); err != nil {
		render.Render(w, r, ErrService(err))
		return
	}
	render.NoContent(w, r)
}
