// Copyright © 2024 Plume. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package protocol

import (
	"context"

	"google.golang.org/grpc"
)

// The group repository is an external collaborator; only the client shape the
// dispatcher consumes is defined here.

const (
	GroupServiceName            = "plume.group.GroupService"
	GroupGetMemberUserIDsMethod = "/plume.group.GroupService/GetGroupMemberUserIDs"
)

type GetGroupMemberUserIDsReq struct {
	GroupID string `json:"groupId"`
}

type GetGroupMemberUserIDsResp struct {
	UserIDs []string `json:"userIds"`
}

type GroupServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewGroupServiceClient(cc grpc.ClientConnInterface) *GroupServiceClient {
	return &GroupServiceClient{cc: cc}
}

func (c *GroupServiceClient) GetGroupMemberUserIDs(ctx context.Context, groupID string) ([]string, error) {
	out := new(GetGroupMemberUserIDsResp)
	req := &GetGroupMemberUserIDsReq{GroupID: groupID}
	if err := c.cc.Invoke(ctx, GroupGetMemberUserIDsMethod, req, out, CallOption()); err != nil {
		return nil, err
	}
	return out.UserIDs, nil
}
