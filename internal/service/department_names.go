package service

import (
	"context"

	"go.uber.org/zap"

	"keijiban/backend/internal/model"
	"keijiban/backend/internal/repository"
)

// fillCreatorNames 解析创建部署名称；查询失败仅记录日志，名称留空
func fillCreatorNames(ctx context.Context, repo repository.DepartmentRepository, logger *zap.Logger, notices []model.EmergencyNotice) map[int]string {
	needLookup := false
	for i := range notices {
		if notices[i].CreatedByDepartmentID != nil {
			needLookup = true
			break
		}
	}
	if !needLookup {
		return nil
	}

	names, err := repo.NamesByID(ctx)
	if err != nil {
		logger.Warn("查询部署名称失败，创建部署名称留空", zap.Error(err))
		return nil
	}
	applyCreatorNames(notices, names)
	return names
}

func applyCreatorNames(notices []model.EmergencyNotice, names map[int]string) {
	for i := range notices {
		if id := notices[i].CreatedByDepartmentID; id != nil {
			notices[i].CreatedByDepartmentName = names[*id]
		}
	}
}
