package echoapi

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/soko/core"
	"github.com/trezcool/soko/core/course"
	"github.com/trezcool/soko/core/purchase"
	"github.com/trezcool/soko/core/user"
)

type educatorApi struct {
	userSvc     *user.Service
	courseSvc   *course.Service
	purchaseSvc *purchase.Service
}

func registerEducatorAPI(
	g *echo.Group,
	auth echo.MiddlewareFunc,
	identity core.IdentityService,
	userSvc *user.Service,
	courseSvc *course.Service,
	purchaseSvc *purchase.Service,
) {
	api := educatorApi{
		userSvc:     userSvc,
		courseSvc:   courseSvc,
		purchaseSvc: purchaseSvc,
	}

	eg := g.Group("/educator", auth)
	eg.GET("/update-role", api.becomeEducator)

	// educator-only endpoints
	ag := eg.Group("", educatorMiddleware(identity))
	ag.POST("/add-course", api.addCourse)
	ag.GET("/courses", api.courses)
	ag.GET("/dashboard", api.dashboard)
	ag.GET("/enrolled-students", api.enrolledStudents)
}

// Handlers

func (api *educatorApi) becomeEducator(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user id")
	}
	if err = api.userSvc.BecomeEducator(ctx.Request().Context(), uid); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "you can publish a course now"})
}

// addCourse expects a multipart form: a "courseData" JSON field and an
// "image" thumbnail file.
func (api *educatorApi) addCourse(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user id")
	}

	var data course.NewCourse
	if err = json.Unmarshal([]byte(ctx.FormValue("courseData")), &data); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "courseData", Error: "invalid course data"})
	}

	fileHeader, err := ctx.FormFile("image")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "image", Error: "thumbnail not attached"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return errors.Wrap(err, "opening thumbnail upload")
	}
	defer func() { _ = file.Close() }()

	crs, err := api.courseSvc.Create(ctx.Request().Context(), uid, data, file, fileHeader.Filename)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *educatorApi) courses(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user id")
	}
	courses, err := api.courseSvc.ForEducator(ctx.Request().Context(), uid)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *educatorApi) dashboard(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user id")
	}
	dash, err := api.purchaseSvc.EducatorDashboard(ctx.Request().Context(), uid)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *educatorApi) enrolledStudents(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user id")
	}
	enrolled, err := api.purchaseSvc.EducatorEnrollments(ctx.Request().Context(), uid)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enrolled)
}
