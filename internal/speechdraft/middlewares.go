// Middleware доступа к проектам: загрузка проекта и членства текущего пользователя,
// проверка роли участника и доступ гостей по ссылке-приглашению.
package speechdraft

import (
	"errors"

	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"github.com/speechdraft/speechdraft/internal/speechdraft/apierrors"
	"github.com/speechdraft/speechdraft/internal/speechdraft/dao"
)

type ProjectContext struct {
	AuthContext
	Project       dao.Project
	ProjectMember dao.ProjectMember
}

// ProjectMiddleware загружает проект из пути. Для пользователя вне проекта проект считается несуществующим.
func (s *Services) ProjectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		projectId := c.Param("projectId")
		user := c.(AuthContext).User

		if _, err := uuid.FromString(projectId); err != nil {
			return EErrorDefined(c, apierrors.ErrProjectNotFound)
		}

		member, err := dao.GetProjectMember(s.db, projectId, user.ID)
		if err != nil {
			return notFoundOr(c, err, apierrors.ErrProjectNotFound)
		}
		if member.Project == nil {
			return EErrorDefined(c, apierrors.ErrProjectNotFound)
		}

		project := *member.Project
		project.CurrentUserRole = member.Role
		member.Project = nil

		return next(ProjectContext{c.(AuthContext), project, *member})
	}
}

// RoleMiddleware пропускает участников с ролью не ниже minRole.
func RoleMiddleware(minRole int, forbidden apierrors.DefinedError) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			projectContext, ok := c.(ProjectContext)
			if !ok {
				return EError(c, errors.New("wrong context"))
			}
			if projectContext.ProjectMember.Role < minRole {
				return EErrorDefined(c, forbidden)
			}
			return next(c)
		}
	}
}

var (
	editorOnly = RoleMiddleware(dao.RoleEditor, apierrors.ErrProjectForbidden)
	ownerOnly  = RoleMiddleware(dao.RoleOwner, apierrors.ErrProjectForbidden)
)

type MagicLinkContext struct {
	echo.Context
	MagicLink dao.MagicLink
	Project   dao.Project
}

// MagicLinkMiddleware дает доступ по действующей ссылке-приглашению. Использование ссылки не засчитывается.
func (s *Services) MagicLinkMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		link, err := dao.GetValidMagicLink(s.db, c.Param("token"))
		if err != nil {
			return notFoundOr(c, err, apierrors.ErrMagicLinkNotFound)
		}
		if link.Project == nil {
			return EErrorDefined(c, apierrors.ErrMagicLinkNotFound)
		}

		project := *link.Project
		link.Project = nil
		return next(MagicLinkContext{c, *link, project})
	}
}
