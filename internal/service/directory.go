package service

import (
	"context"

	"moving-team/backend/internal/repository"
)

// Region 地址所属区域
type Region struct {
	Region   string
	District string
}

// AddressResolver 地址 → 区域
type AddressResolver interface {
	RegionOf(ctx context.Context, addressID string) (Region, error)
}

// DriverDirectory 按服务区域查询司机
type DriverDirectory interface {
	DriversServicing(ctx context.Context, regions []string) ([]string, error)
}

// RepoDirectory 基于本库 addresses / drivers 表的实现
type RepoDirectory struct {
	repo *repository.Repository
}

// NewRepoDirectory 创建基于数据库的地址与司机目录
func NewRepoDirectory(repo *repository.Repository) *RepoDirectory {
	return &RepoDirectory{repo: repo}
}

func (d *RepoDirectory) RegionOf(ctx context.Context, addressID string) (Region, error) {
	a, err := d.repo.Address.GetByID(ctx, addressID)
	if err != nil {
		return Region{}, err
	}
	return Region{Region: a.Region, District: a.District}, nil
}

func (d *RepoDirectory) DriversServicing(ctx context.Context, regions []string) ([]string, error) {
	return d.repo.Driver.ListIDsByRegions(ctx, regions)
}
