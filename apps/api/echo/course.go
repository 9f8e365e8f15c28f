package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/soko/core/course"
)

type courseApi struct {
	svc *course.Service
}

// registerCourseAPI mounts the public catalog endpoints; no auth required.
func registerCourseAPI(g *echo.Group, svc *course.Service) {
	api := courseApi{svc: svc}

	cg := g.Group("/course")
	cg.GET("/all", api.queryPublished)
	cg.GET("/:id", api.retrieve)
}

// Handlers

func (api *courseApi) queryPublished(ctx echo.Context) error {
	courses, err := api.svc.QueryPublished(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}
