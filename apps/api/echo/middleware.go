package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
)

func claimsMiddleware(allow func(Claims) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if allow(claims) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// adminMiddleware lets admins holding any of the roles through, every admin when no role is given.
func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return claimsMiddleware(func(claims Claims) bool {
			return claims.IsAdmin
		})(func(ctx echo.Context) error {
			if !contextHasAnyRole(ctx, roles) {
				return errHttpForbidden
			}
			return next(ctx)
		})
	}
}

// teacherMiddleware lets teachers and admins through.
func teacherMiddleware() echo.MiddlewareFunc {
	return claimsMiddleware(func(claims Claims) bool {
		return claims.IsTeacher || claims.IsAdmin
	})
}

func studentMiddleware() echo.MiddlewareFunc {
	return claimsMiddleware(func(claims Claims) bool {
		return claims.IsStudent
	})
}

// checkTeaches returns errHttpForbidden unless usr is an admin or the teacher of the class.
func checkTeaches(ctx echo.Context, students *student.Service, usr user.User, classID string) error {
	if usr.IsAdmin() {
		return nil
	}
	ok, err := students.IsTeacherOf(ctx.Request().Context(), usr.ID, classID)
	if err != nil {
		return errors.Wrap(err, "checking class teacher")
	}
	if !ok {
		return errHttpForbidden
	}
	return nil
}

// contextStudent returns the student record of the authenticated student user.
func contextStudent(ctx echo.Context, users *user.Service, students *student.Service) (student.Student, error) {
	usr, err := getContextUser(ctx, users)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "getting context user")
	}
	s, err := students.GetByUserID(ctx.Request().Context(), usr.ID)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return student.Student{}, errHttpNotFound
		}
		return student.Student{}, errors.Wrap(err, "finding student by user ID")
	}
	return s, nil
}
