package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/soko/core"
	"github.com/trezcool/soko/core/course"
	"github.com/trezcool/soko/core/progress"
	"github.com/trezcool/soko/core/purchase"
	"github.com/trezcool/soko/core/user"
)

type userApi struct {
	conf        *core.Config
	userSvc     *user.Service
	courseSvc   *course.Service
	purchaseSvc *purchase.Service
	progressSvc *progress.Service
}

func registerUserAPI(
	g *echo.Group,
	auth echo.MiddlewareFunc,
	conf *core.Config,
	userSvc *user.Service,
	courseSvc *course.Service,
	purchaseSvc *purchase.Service,
	progressSvc *progress.Service,
) {
	api := userApi{
		conf:        conf,
		userSvc:     userSvc,
		courseSvc:   courseSvc,
		purchaseSvc: purchaseSvc,
		progressSvc: progressSvc,
	}

	ug := g.Group("/user", auth)
	ug.GET("/data", api.retrieve)
	ug.GET("/enrolled-courses", api.enrolledCourses)
	ug.POST("/purchase", api.purchase)
	ug.POST("/update-course-progress", api.updateCourseProgress)
	ug.POST("/get-course-progress", api.getCourseProgress)
	ug.POST("/add-rating", api.addRating)
}

// Handlers

func (api *userApi) retrieve(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user id")
	}
	usr, err := api.userSvc.GetByID(ctx.Request().Context(), uid)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) enrolledCourses(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user id")
	}
	usr, err := api.userSvc.GetByID(ctx.Request().Context(), uid)
	if err != nil {
		return err
	}
	courses, err := api.courseSvc.GetByIDs(ctx.Request().Context(), usr.EnrolledCourses)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *userApi) purchase(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user id")
	}

	var data PurchaseRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PurchaseRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	// checkout redirects land back on the caller's origin
	origin := ctx.Request().Header.Get("Origin")
	if origin == "" {
		origin = api.conf.FrontendBaseURL
	}

	sess, err := api.purchaseSvc.Initiate(ctx.Request().Context(), uid, data.CourseID, origin)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, PurchaseResponse{SessionURL: sess.URL})
}

func (api *userApi) updateCourseProgress(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user id")
	}

	var data ProgressUpdateRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProgressUpdateRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	prog, err := api.progressSvc.CompleteLecture(ctx.Request().Context(), uid, data.CourseID, data.LectureID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *userApi) getCourseProgress(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user id")
	}

	var data ProgressRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProgressRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	prog, err := api.progressSvc.Get(ctx.Request().Context(), uid, data.CourseID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *userApi) addRating(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user id")
	}

	var data RatingRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RatingRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	if err = api.courseSvc.Rate(ctx.Request().Context(), uid, data.CourseID, data.Rating); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "rating added"})
}

// Requests & Responses

type PurchaseRequest struct {
	CourseID string `json:"courseId" validate:"required"`
}

func (r *PurchaseRequest) Validate() error {
	return core.Validate.Struct(r)
}

type PurchaseResponse struct {
	SessionURL string `json:"sessionUrl"`
}

type ProgressUpdateRequest struct {
	CourseID  string `json:"courseId" validate:"required"`
	LectureID string `json:"lectureId" validate:"required"`
}

func (r *ProgressUpdateRequest) Validate() error {
	return core.Validate.Struct(r)
}

type ProgressRequest struct {
	CourseID string `json:"courseId" validate:"required"`
}

func (r *ProgressRequest) Validate() error {
	return core.Validate.Struct(r)
}

type RatingRequest struct {
	CourseID string `json:"courseId" validate:"required"`
	Rating   int    `json:"rating" validate:"required,gte=1,lte=5"`
}

func (r *RatingRequest) Validate() error {
	return core.Validate.Struct(r)
}
